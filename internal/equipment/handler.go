package equipment

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

type RegisterRequest struct {
	Code                string  `json:"code" binding:"required,min=1,max=50"`
	Name                string  `json:"name" binding:"required,min=1,max=200"`
	Type                string  `json:"type"`
	EquipmentTypeID     *uint64 `json:"equipment_type_id"`
	Manufacturer        string  `json:"manufacturer"`
	Model               string  `json:"model"`
	SerialNumber        string  `json:"serial_number"`
	Location            string  `json:"location"`
	ResponsibleID       *uint64 `json:"responsible_id"`
	AcquisitionDate     *string `json:"acquisition_date"`
	CalibrationFreqDays int     `json:"calibration_freq_days" binding:"gte=0"`
	MaintenanceFreqDays int     `json:"maintenance_freq_days" binding:"gte=0"`
	NextCalibration     *string `json:"next_calibration"`
	NextMaintenance     *string `json:"next_maintenance"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	acquisition, err := parseDate(req.AcquisitionDate)
	if err != nil {
		c.Error(errors.UnprocessableEntity("acquisition_date must be YYYY-MM-DD", err))
		return
	}
	nextCal, err := parseDate(req.NextCalibration)
	if err != nil {
		c.Error(errors.UnprocessableEntity("next_calibration must be YYYY-MM-DD", err))
		return
	}
	nextMaint, err := parseDate(req.NextMaintenance)
	if err != nil {
		c.Error(errors.UnprocessableEntity("next_maintenance must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	e, err := h.service.Register(c.Request.Context(), actorID, role, RegisterInput{
		Code:                req.Code,
		Name:                req.Name,
		Type:                req.Type,
		EquipmentTypeID:     req.EquipmentTypeID,
		Manufacturer:        req.Manufacturer,
		Model:               req.Model,
		SerialNumber:        req.SerialNumber,
		Location:            req.Location,
		ResponsibleID:       req.ResponsibleID,
		AcquisitionDate:     acquisition,
		CalibrationFreqDays: req.CalibrationFreqDays,
		MaintenanceFreqDays: req.MaintenanceFreqDays,
		NextCalibration:     nextCal,
		NextMaintenance:     nextMaint,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, e)
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
		c.Error(errors.BadRequest("Invalid equipment id", err))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

type EditRequest struct {
	Name                string  `json:"name" binding:"required,min=1,max=200"`
	Type                string  `json:"type"`
	EquipmentTypeID     *uint64 `json:"equipment_type_id"`
	Manufacturer        string  `json:"manufacturer"`
	Model               string  `json:"model"`
	SerialNumber        string  `json:"serial_number"`
	Location            string  `json:"location"`
	ResponsibleID       *uint64 `json:"responsible_id"`
	Status              string  `json:"status" binding:"required,oneof=active maintenance retired"`
	CalibrationFreqDays int     `json:"calibration_freq_days" binding:"gte=0"`
	MaintenanceFreqDays int     `json:"maintenance_freq_days" binding:"gte=0"`
}

func (h *Handler) Edit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid equipment id", err))
		return
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	e, err := h.service.Edit(c.Request.Context(), id, actorID, role, EditInput{
		Name:                req.Name,
		Type:                req.Type,
		EquipmentTypeID:     req.EquipmentTypeID,
		Manufacturer:        req.Manufacturer,
		Model:               req.Model,
		SerialNumber:        req.SerialNumber,
		Location:            req.Location,
		ResponsibleID:       req.ResponsibleID,
		Status:              Status(req.Status),
		CalibrationFreqDays: req.CalibrationFreqDays,
		MaintenanceFreqDays: req.MaintenanceFreqDays,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, e)
}

type LogServiceRequest struct {
	Type            string  `json:"type" binding:"required,oneof=maintenance calibration repair inspection"`
	Status          string  `json:"status" binding:"omitempty,oneof=scheduled completed"`
	Description     string  `json:"description"`
	ServiceDate     string  `json:"service_date" binding:"required"`
	Provider        string  `json:"provider"`
	Cost            float64 `json:"cost" binding:"gte=0"`
	NextService     *string `json:"next_service"`
	CertificatePath string  `json:"certificate_path"`
}

func (h *Handler) LogService(c *gin.Context) {
	equipmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid equipment id", err))
		return
	}

	var req LogServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	serviceDate, err := time.Parse("2006-01-02", req.ServiceDate)
	if err != nil {
		c.Error(errors.UnprocessableEntity("service_date must be YYYY-MM-DD", err))
		return
	}
	nextService, err := parseDate(req.NextService)
	if err != nil {
		c.Error(errors.UnprocessableEntity("next_service must be YYYY-MM-DD", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	record, err := h.service.LogService(c.Request.Context(), equipmentID, actorID, role, ServiceInput{
		Type:            ServiceType(req.Type),
		Status:          RecordStatus(req.Status),
		Description:     req.Description,
		ServiceDate:     serviceDate,
		Provider:        req.Provider,
		Cost:            req.Cost,
		NextService:     nextService,
		CertificatePath: req.CertificatePath,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) CompleteService(c *gin.Context) {
	recordID, err := strconv.ParseUint(c.Param("recordId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid service record id", err))
		return
	}

	actorID, role := middleware.ActorFrom(c)

	record, err := h.service.CompleteService(c.Request.Context(), recordID, actorID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type CreateTypeRequest struct {
	Code        string `json:"code" binding:"required,min=1,max=20"`
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
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

func (h *Handler) Due(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.Error(errors.BadRequest("days must be a non-negative integer", err))
			return
		}
		days = parsed
	}

	items, err := h.service.DueWithin(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "window_days": days})
}
