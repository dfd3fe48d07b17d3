package approval

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
	"alpha-qms/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type ApproveRequest struct {
	Comments string `json:"comments"`
}

type RejectRequest struct {
	Comments string `json:"comments" binding:"required"`
}

func (h *Handler) Approve(c *gin.Context) {
	flowID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid approval id", err))
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, _ := middleware.ActorFrom(c)

	doc, err := h.service.Approve(c.Request.Context(), flowID, actorID, req.Comments)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Reject(c *gin.Context) {
	flowID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid approval id", err))
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, _ := middleware.ActorFrom(c)

	doc, err := h.service.Reject(c.Request.Context(), flowID, actorID, req.Comments)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Pending(c *gin.Context) {
	actorID, role := middleware.ActorFrom(c)
	page, pageSize := utils.GetPaginationParams(c)

	result, err := h.service.PendingForApprover(c.Request.Context(), actorID, role, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ByDocument(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	flows, err := h.service.FlowsForDocument(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, flows)
}
