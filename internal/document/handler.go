package document

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

type CreateDocumentRequest struct {
	Title          string  `json:"title" binding:"required,min=1,max=200"`
	Type           string  `json:"type" binding:"required,min=1,max=50"`
	DocumentTypeID *uint64 `json:"document_type_id"`
	Department     string  `json:"department" binding:"max=100"`
	Keywords       string  `json:"keywords"`
	Summary        string  `json:"summary"`
	Content        string  `json:"content" binding:"required"`
	ValidUntil     *string `json:"valid_until"` // YYYY-MM-DD
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

func (h *Handler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	validUntil, err := parseDate(req.ValidUntil)
	if err != nil {
		c.Error(errors.UnprocessableEntity("valid_until must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	doc, err := h.service.CreateDocument(c.Request.Context(), actorID, role, CreateInput{
		Title:          req.Title,
		Type:           req.Type,
		DocumentTypeID: req.DocumentTypeID,
		Department:     req.Department,
		Keywords:       req.Keywords,
		Summary:        req.Summary,
		Content:        req.Content,
		ValidUntil:     validUntil,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	filter := ListFilter{
		Search: c.Query("search"),
		Type:   c.Query("type"),
		Status: Status(c.Query("status")),
	}

	result, err := h.service.ListDocuments(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Show(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	actorID, _ := middleware.ActorFrom(c)

	detail, err := h.service.GetDocument(c.Request.Context(), docID, actorID, c.ClientIP())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

type EditDocumentRequest struct {
	Title      string  `json:"title" binding:"required,min=1,max=200"`
	Type       string  `json:"type" binding:"required,min=1,max=50"`
	Department string  `json:"department" binding:"max=100"`
	Keywords   string  `json:"keywords"`
	Summary    string  `json:"summary"`
	Content    string  `json:"content" binding:"required"`
	Changelog  string  `json:"changelog"`
	ValidUntil *string `json:"valid_until"`
}

func (h *Handler) Edit(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	var req EditDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	validUntil, err := parseDate(req.ValidUntil)
	if err != nil {
		c.Error(errors.UnprocessableEntity("valid_until must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	doc, err := h.service.EditDocument(c.Request.Context(), docID, actorID, role, EditInput{
		Title:      req.Title,
		Type:       req.Type,
		Department: req.Department,
		Keywords:   req.Keywords,
		Summary:    req.Summary,
		Content:    req.Content,
		Changelog:  req.Changelog,
		ValidUntil: validUntil,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

type SubmitRequest struct {
	ApproverIDs []uint64 `json:"approver_ids" binding:"required"`
	Deadline    *string  `json:"deadline"`
}

func (h *Handler) Submit(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	var req SubmitRequest
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

	flows, err := h.service.SubmitForApproval(c.Request.Context(), docID, actorID, role, req.ApproverIDs, deadline)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, flows)
}

func (h *Handler) RestoreVersion(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}
	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid version id", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	version, err := h.service.RestoreVersion(c.Request.Context(), docID, versionID, actorID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, version)
}

func (h *Handler) Versions(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, versions)
}

func (h *Handler) ConfirmReading(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	actorID, _ := middleware.ActorFrom(c)

	created, err := h.service.ConfirmReading(c.Request.Context(), docID, actorID, c.ClientIP())
	if err != nil {
		c.Error(err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "Reading confirmed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reading already confirmed for this version"})
}

func (h *Handler) MarkObsolete(c *gin.Context) {
	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	doc, err := h.service.MarkObsolete(c.Request.Context(), docID, actorID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Expiring(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		days = 30
	}

	documents, err := h.service.ScanExpiring(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, documents)
}

type CreateTypeRequest struct {
	Code        string `json:"code" binding:"required,min=1,max=20"`
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (h *Handler) CreateType(c *gin.Context) {
	var req CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	t := &Type{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	}
	if err := h.service.CreateType(c.Request.Context(), actorID, role, t); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.service.ListTypes(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types)
}
