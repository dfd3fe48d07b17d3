package auditlog

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	recorder *Recorder
}

func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// List shows recent audit log entries, administrators only
func (h *Handler) List(c *gin.Context) {
	_, role := middleware.ActorFrom(c)
	if !role.CanAdmin() {
		c.Error(errors.Forbidden("Only administrators can view the audit log", nil))
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.Error(errors.BadRequest("limit must be between 1 and 500", err))
			return
		}
		limit = parsed
	}

	entries, err := h.recorder.List(c.Request.Context(), c.Query("resource"), limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
