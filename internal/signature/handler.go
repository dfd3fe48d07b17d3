package signature

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

type SignRequest struct {
	Type string `json:"type" binding:"required,oneof=digital electronic handwritten"`
}

func (h *Handler) Sign(c *gin.Context) {
	documentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	sig, err := h.service.Sign(c.Request.Context(), documentID, actorID, role, SignInput{
		Type:      SignatureType(req.Type),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sig)
}

func (h *Handler) Verify(c *gin.Context) {
	signatureID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid signature id", err))
		return
	}

	result, err := h.service.Verify(c.Request.Context(), signatureID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ByDocument(c *gin.Context) {
	documentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid document id", err))
		return
	}

	sigs, err := h.service.ListByDocument(c.Request.Context(), documentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sigs)
}

func (h *Handler) Mine(c *gin.Context) {
	actorID, _ := middleware.ActorFrom(c)

	sigs, err := h.service.MySignatures(c.Request.Context(), actorID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sigs)
}

func (h *Handler) Certificate(c *gin.Context) {
	signatureID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid signature id", err))
		return
	}

	cert, err := h.service.Certificate(c.Request.Context(), signatureID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cert)
}
