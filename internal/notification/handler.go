package notification

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repository Repository
	dispatcher *Dispatcher
}

func NewHandler(repository Repository, dispatcher *Dispatcher) *Handler {
	return &Handler{repository: repository, dispatcher: dispatcher}
}

// Mine lists the caller's recent notifications
func (h *Handler) Mine(c *gin.Context) {
	actorID, _ := middleware.ActorFrom(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.Error(errors.BadRequest("limit must be between 1 and 200", err))
			return
		}
		limit = parsed
	}

	rows, err := h.repository.ListByRecipient(c.Request.Context(), actorID, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Reprocess retries undelivered notifications, administrators only
func (h *Handler) Reprocess(c *gin.Context) {
	_, role := middleware.ActorFrom(c)
	if !role.CanAdmin() {
		c.Error(errors.Forbidden("Only administrators can reprocess notifications", nil))
		return
	}

	delivered, err := h.dispatcher.ProcessPending(c.Request.Context(), 100)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}
