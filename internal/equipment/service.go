package equipment

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/event"
	"alpha-qms/internal/user"
	"alpha-qms/internal/utils"
	"context"
	defErrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Code                string
	Name                string
	Type                string
	EquipmentTypeID     *uint64
	Manufacturer        string
	Model               string
	SerialNumber        string
	Location            string
	ResponsibleID       *uint64
	AcquisitionDate     *time.Time
	CalibrationFreqDays int
	MaintenanceFreqDays int
	NextCalibration     *time.Time
	NextMaintenance     *time.Time
}

type EditInput struct {
	Name                string
	Type                string
	EquipmentTypeID     *uint64
	Manufacturer        string
	Model               string
	SerialNumber        string
	Location            string
	ResponsibleID       *uint64
	Status              Status
	CalibrationFreqDays int
	MaintenanceFreqDays int
}

type ServiceInput struct {
	Type            ServiceType
	Status          RecordStatus
	Description     string
	ServiceDate     time.Time
	Provider        string
	Cost            float64
	NextService     *time.Time
	CertificatePath string
}

// EquipmentDetail bundles equipment with its history and due flags
type EquipmentDetail struct {
	Equipment         *Equipment      `json:"equipment"`
	Records           []ServiceRecord `json:"records"`
	CalibrationDue    bool            `json:"is_calibration_due"`
	MaintenanceDue    bool            `json:"is_maintenance_due"`
	DaysToCalibration *int            `json:"days_to_calibration"`
	DaysToMaintenance *int            `json:"days_to_maintenance"`
}

type PaginatedEquipment struct {
	Data []Equipment    `json:"data"`
	Meta utils.PageMeta `json:"meta"`
}

type Service interface {
	Register(ctx context.Context, actorID uint64, role user.Role, input RegisterInput) (*Equipment, error)
	Get(ctx context.Context, id uint64) (*EquipmentDetail, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedEquipment, error)
	Edit(ctx context.Context, id, actorID uint64, role user.Role, input EditInput) (*Equipment, error)
	LogService(ctx context.Context, equipmentID, actorID uint64, role user.Role, input ServiceInput) (*ServiceRecord, error)
	CompleteService(ctx context.Context, recordID, actorID uint64, role user.Role) (*ServiceRecord, error)
	DueWithin(ctx context.Context, days int) ([]Equipment, error)
	CreateType(ctx context.Context, actorID uint64, role user.Role, t *Type) error
	ListTypes(ctx context.Context) ([]Type, error)
}

type DefaultService struct {
	repository Repository
	bus        *event.Bus
}

func NewService(repository Repository, bus *event.Bus) Service {
	return &DefaultService{repository: repository, bus: bus}
}

func (s *DefaultService) Register(ctx context.Context, actorID uint64, role user.Role, input RegisterInput) (*Equipment, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to register equipment", nil)
	}
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, errors.UnprocessableEntity("Code and name are required", nil)
	}

	e := &Equipment{
		Code:                input.Code,
		Name:                input.Name,
		Type:                input.Type,
		EquipmentTypeID:     input.EquipmentTypeID,
		Manufacturer:        input.Manufacturer,
		Model:               input.Model,
		SerialNumber:        input.SerialNumber,
		Location:            input.Location,
		ResponsibleID:       input.ResponsibleID,
		Status:              StatusActive,
		AcquisitionDate:     input.AcquisitionDate,
		CalibrationFreqDays: input.CalibrationFreqDays,
		MaintenanceFreqDays: input.MaintenanceFreqDays,
		NextCalibration:     input.NextCalibration,
		NextMaintenance:     input.NextMaintenance,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.repository.Create(ctx, e); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Equipment code already registered", err)
		}
		return nil, err
	}
	return e, nil
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*EquipmentDetail, error) {
	e, err := s.findEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.repository.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}

	return &EquipmentDetail{
		Equipment:         e,
		Records:           records,
		CalibrationDue:    e.IsCalibrationDue(),
		MaintenanceDue:    e.IsMaintenanceDue(),
		DaysToCalibration: e.DaysToCalibration(),
		DaysToMaintenance: e.DaysToMaintenance(),
	}, nil
}

func (s *DefaultService) List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedEquipment, error) {
	items, total, err := s.repository.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaginatedEquipment{Data: items, Meta: utils.NewPageMeta(total, page, pageSize)}, nil
}

func (s *DefaultService) Edit(ctx context.Context, id, actorID uint64, role user.Role, input EditInput) (*Equipment, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to edit equipment", nil)
	}

	e, err := s.findEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, errors.UnprocessableEntity("Unknown equipment status", nil)
	}

	e.Name = input.Name
	e.Type = input.Type
	e.EquipmentTypeID = input.EquipmentTypeID
	e.Manufacturer = input.Manufacturer
	e.Model = input.Model
	e.SerialNumber = input.SerialNumber
	e.Location = input.Location
	e.ResponsibleID = input.ResponsibleID
	e.Status = input.Status
	e.CalibrationFreqDays = input.CalibrationFreqDays
	e.MaintenanceFreqDays = input.MaintenanceFreqDays

	if err := s.repository.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// LogService records a service event. Due-date rollover happens in the
// reactor consuming the published event, not here.
func (s *DefaultService) LogService(ctx context.Context, equipmentID, actorID uint64, role user.Role, input ServiceInput) (*ServiceRecord, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to log service records", nil)
	}

	e, err := s.findEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusRetired {
		return nil, errors.UnprocessableEntity("Cannot log services on retired equipment", nil)
	}

	status := input.Status
	if status == "" {
		status = RecordScheduled
	}
	if status != RecordScheduled && status != RecordCompleted {
		return nil, errors.UnprocessableEntity("Status must be scheduled or completed", nil)
	}

	record := &ServiceRecord{
		EquipmentID:     e.ID,
		Type:            input.Type,
		Status:          status,
		Description:     input.Description,
		ServiceDate:     input.ServiceDate,
		Provider:        input.Provider,
		Cost:            input.Cost,
		NextService:     input.NextService,
		CertificatePath: input.CertificatePath,
		LoggedByID:      actorID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repository.CreateRecord(ctx, record); err != nil {
		return nil, err
	}

	s.publishLogged(record)
	return record, nil
}

// CompleteService closes a scheduled record and republishes so the
// reactor rolls the due date
func (s *DefaultService) CompleteService(ctx context.Context, recordID, actorID uint64, role user.Role) (*ServiceRecord, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to update service records", nil)
	}

	record, err := s.repository.FindRecord(ctx, recordID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Service record not found", err)
		}
		return nil, err
	}
	if record.Status != RecordScheduled {
		return nil, errors.AlreadyProcessed("This service record is already resolved")
	}

	record.Status = RecordCompleted
	if err := s.repository.UpdateRecord(ctx, record); err != nil {
		return nil, err
	}

	s.publishLogged(record)
	return record, nil
}

func (s *DefaultService) DueWithin(ctx context.Context, days int) ([]Equipment, error) {
	return s.repository.DueWithin(ctx, days)
}

func (s *DefaultService) publishLogged(record *ServiceRecord) {
	s.bus.Publish(event.ServiceRecordLogged, event.ServiceRecordLoggedPayload{
		RecordID:    record.ID,
		EquipmentID: record.EquipmentID,
		ServiceType: string(record.Type),
		Status:      string(record.Status),
		NextService: record.NextService,
	})
}

func (s *DefaultService) CreateType(ctx context.Context, actorID uint64, role user.Role, t *Type) error {
	if !role.CanAdmin() {
		return errors.Forbidden("Only administrators can manage equipment types", nil)
	}
	t.CreatedBy = actorID
	t.Active = true

	if err := s.repository.CreateType(ctx, t); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("Equipment type code already exists", err)
		}
		return err
	}
	return nil
}

func (s *DefaultService) ListTypes(ctx context.Context) ([]Type, error) {
	return s.repository.ListTypes(ctx)
}

func (s *DefaultService) findEquipment(ctx context.Context, id uint64) (*Equipment, error) {
	e, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Equipment not found", err)
		}
		return nil, err
	}
	return e, nil
}
