package group

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
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

type CreateGroupRequest struct {
	Code               string  `json:"code" binding:"required,min=1,max=20"`
	Name               string  `json:"name" binding:"required,min=1,max=100"`
	Description        string  `json:"description"`
	ResponsibleID      *uint64 `json:"responsible_id"`
	NotifyNewDocuments *bool   `json:"notify_new_documents"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	// notification fan-out defaults to on unless explicitly disabled
	notify := true
	if req.NotifyNewDocuments != nil {
		notify = *req.NotifyNewDocuments
	}

	g, err := h.service.CreateGroup(c.Request.Context(), actorID, role, CreateInput{
		Code:               req.Code,
		Name:               req.Name,
		Description:        req.Description,
		ResponsibleID:      req.ResponsibleID,
		NotifyNewDocuments: notify,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (h *Handler) List(c *gin.Context) {
	groups, err := h.service.ListGroups(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

func (h *Handler) Show(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid group id", err))
		return
	}

	g, err := h.service.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, g)
}

type EditGroupRequest struct {
	Name               string  `json:"name" binding:"required,min=1,max=100"`
	Description        string  `json:"description"`
	ResponsibleID      *uint64 `json:"responsible_id"`
	NotifyNewDocuments bool    `json:"notify_new_documents"`
	Active             bool    `json:"active"`
}

func (h *Handler) Edit(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid group id", err))
		return
	}

	var req EditGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	_, role := middleware.ActorFrom(c)

	g, err := h.service.EditGroup(c.Request.Context(), groupID, role, EditInput{
		Name:               req.Name,
		Description:        req.Description,
		ResponsibleID:      req.ResponsibleID,
		NotifyNewDocuments: req.NotifyNewDocuments,
		Active:             req.Active,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (h *Handler) idPair(c *gin.Context, second string) (uint64, uint64, bool) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid group id", err))
		return 0, 0, false
	}
	other, err := strconv.ParseUint(c.Param(second), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid "+second, err))
		return 0, 0, false
	}
	return groupID, other, true
}

func (h *Handler) AddMember(c *gin.Context) {
	groupID, userID, ok := h.idPair(c, "userId")
	if !ok {
		return
	}

	_, role := middleware.ActorFrom(c)

	if err := h.service.AddMember(c.Request.Context(), groupID, userID, role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Member added"})
}

func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, userID, ok := h.idPair(c, "userId")
	if !ok {
		return
	}

	_, role := middleware.ActorFrom(c)

	if err := h.service.RemoveMember(c.Request.Context(), groupID, userID, role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *Handler) LinkDocumentType(c *gin.Context) {
	groupID, typeID, ok := h.idPair(c, "typeId")
	if !ok {
		return
	}

	_, role := middleware.ActorFrom(c)

	if err := h.service.LinkDocumentType(c.Request.Context(), groupID, typeID, role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Document type linked"})
}

func (h *Handler) UnlinkDocumentType(c *gin.Context) {
	groupID, typeID, ok := h.idPair(c, "typeId")
	if !ok {
		return
	}

	_, role := middleware.ActorFrom(c)

	if err := h.service.UnlinkDocumentType(c.Request.Context(), groupID, typeID, role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document type unlinked"})
}
