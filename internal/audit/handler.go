package audit

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

type ScheduleRequest struct {
	Title         string  `json:"title" binding:"required,min=1,max=200"`
	Type          string  `json:"type" binding:"required,oneof=internal external certification supplier"`
	Scope         string  `json:"scope"`
	Objectives    string  `json:"objectives"`
	LeadAuditorID uint64  `json:"lead_auditor_id" binding:"required"`
	ScheduledDate *string `json:"scheduled_date"`
}

func (h *Handler) Schedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		c.Error(errors.UnprocessableEntity("scheduled_date must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	a, err := h.service.Schedule(c.Request.Context(), actorID, role, ScheduleInput{
		Title:         req.Title,
		Type:          req.Type,
		Scope:         req.Scope,
		Objectives:    req.Objectives,
		LeadAuditorID: req.LeadAuditorID,
		ScheduledDate: scheduled,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	filter := ListFilter{
		Search: c.Query("search"),
		Status: Status(c.Query("status")),
		Type:   c.Query("type"),
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
		c.Error(errors.BadRequest("Invalid audit id", err))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required,oneof=planned in_progress completed cancelled"`
	Summary string `json:"summary"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid audit id", err))
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	a, err := h.service.ChangeStatus(c.Request.Context(), id, actorID, role, Status(req.Status), req.Summary)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, a)
}

type AddItemRequest struct {
	Requisite   string `json:"requisite" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) AddItem(c *gin.Context) {
	auditID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid audit id", err))
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	item, err := h.service.AddItem(c.Request.Context(), auditID, actorID, role, ItemInput{
		Requisite:   req.Requisite,
		Description: req.Description,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

type VerifyItemRequest struct {
	Status   string `json:"status" binding:"required,oneof=conforming nonconforming not_applicable"`
	Evidence string `json:"evidence"`
	Notes    string `json:"notes"`
}

func (h *Handler) VerifyItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid checklist item id", err))
		return
	}

	var req VerifyItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	item, err := h.service.VerifyItem(c.Request.Context(), itemID, actorID, role, VerifyItemInput{
		Status:   ItemStatus(req.Status),
		Evidence: req.Evidence,
		Notes:    req.Notes,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type FindingRequest struct {
	Type            string  `json:"type" binding:"required,oneof=observation minor major"`
	Description     string  `json:"description" binding:"required"`
	Requirement     string  `json:"requirement"`
	NonConformityID *uint64 `json:"non_conformity_id"`
}

func (h *Handler) RecordFinding(c *gin.Context) {
	auditID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid audit id", err))
		return
	}

	var req FindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	finding, err := h.service.RecordFinding(c.Request.Context(), auditID, actorID, role, FindingInput{
		Type:            FindingType(req.Type),
		Description:     req.Description,
		Requirement:     req.Requirement,
		NonConformityID: req.NonConformityID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, finding)
}
