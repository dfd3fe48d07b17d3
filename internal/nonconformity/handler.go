package nonconformity

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
	"alpha-qms/internal/utils"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type OpenRequest struct {
	Title         string  `json:"title" binding:"required,min=1,max=200"`
	Description   string  `json:"description" binding:"required"`
	Category      string  `json:"category" binding:"required,oneof=internal external audit customer"`
	Severity      string  `json:"severity" binding:"required,oneof=low medium high critical"`
	Origin        string  `json:"origin"`
	Department    string  `json:"department"`
	ResponsibleID *uint64 `json:"responsible_id"`
	DocumentID    *uint64 `json:"document_id"`
	Deadline      *string `json:"deadline"`
}

func (h *Handler) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	deadline, err := parseDate(req.Deadline)
	if err != nil {
		c.Error(errors.UnprocessableEntity("deadline must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	nc, err := h.service.Open(c.Request.Context(), actorID, role, OpenInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Severity:      Severity(req.Severity),
		Origin:        req.Origin,
		Department:    req.Department,
		ResponsibleID: req.ResponsibleID,
		DocumentID:    req.DocumentID,
		Deadline:      deadline,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, nc)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	filter := ListFilter{
		Search:   c.Query("search"),
		Status:   Status(c.Query("status")),
		Severity: Severity(c.Query("severity")),
	}

	result, err := h.service.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid non-conformity id", err))
		return
	}

	nc, actions, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"non_conformity": nc,
		"actions":        actions,
		"overdue":        nc.IsOverdue(),
		"days_to_deadline": nc.DaysToDeadline(),
	})
}

type EditRequest struct {
	Title         string  `json:"title" binding:"required,min=1,max=200"`
	Description   string  `json:"description" binding:"required"`
	Category      string  `json:"category" binding:"required,oneof=internal external audit customer"`
	Severity      string  `json:"severity" binding:"required,oneof=low medium high critical"`
	Status        string  `json:"status" binding:"required,oneof=open analyzing in_treatment closed"`
	Origin        string  `json:"origin"`
	Department    string  `json:"department"`
	ResponsibleID *uint64 `json:"responsible_id"`
	Deadline      *string `json:"deadline"`
}

func (h *Handler) Edit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid non-conformity id", err))
		return
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	deadline, err := parseDate(req.Deadline)
	if err != nil {
		c.Error(errors.UnprocessableEntity("deadline must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	nc, err := h.service.Edit(c.Request.Context(), id, actorID, role, EditInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Severity:      Severity(req.Severity),
		Status:        Status(req.Status),
		Origin:        req.Origin,
		Department:    req.Department,
		ResponsibleID: req.ResponsibleID,
		Deadline:      deadline,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, nc)
}

type FileActionRequest struct {
	Category      string  `json:"category" binding:"required,oneof=corrective preventive"`
	Description   string  `json:"description" binding:"required"`
	Justification string  `json:"justification"`
	ResponsibleID uint64  `json:"responsible_id" binding:"required"`
	Deadline      *string `json:"deadline"`
}

func (h *Handler) FileAction(c *gin.Context) {
	ncID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid non-conformity id", err))
		return
	}

	var req FileActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	deadline, err := parseDate(req.Deadline)
	if err != nil {
		c.Error(errors.UnprocessableEntity("deadline must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	action, err := h.service.FileAction(c.Request.Context(), ncID, actorID, role, ActionInput{
		Category:      ActionCategory(req.Category),
		Description:   req.Description,
		Justification: req.Justification,
		ResponsibleID: req.ResponsibleID,
		Deadline:      deadline,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, action)
}

type UpdateActionRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed cancelled"`
}

func (h *Handler) UpdateAction(c *gin.Context) {
	actionID, err := strconv.ParseUint(c.Param("actionId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid action id", err))
		return
	}

	var req UpdateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	action, err := h.service.UpdateActionStatus(c.Request.Context(), actionID, actorID, role, ActionStatus(req.Status))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, action)
}

func (h *Handler) Reports(c *gin.Context) {
	_, role := middleware.ActorFrom(c)

	stats, err := h.service.GetStats(c.Request.Context(), role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
