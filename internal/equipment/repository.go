package equipment

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Search string
	Status Status
	Type   string
}

type Repository interface {
	Create(ctx context.Context, e *Equipment) error
	FindByID(ctx context.Context, id uint64) (*Equipment, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Equipment, int64, error)
	Update(ctx context.Context, e *Equipment) error
	DueWithin(ctx context.Context, days int) ([]Equipment, error)
	CreateRecord(ctx context.Context, record *ServiceRecord) error
	FindRecord(ctx context.Context, recordID uint64) (*ServiceRecord, error)
	ListRecords(ctx context.Context, equipmentID uint64) ([]ServiceRecord, error)
	UpdateRecord(ctx context.Context, record *ServiceRecord) error
	RollNextDue(ctx context.Context, equipmentID uint64, serviceType ServiceType, next time.Time) error
	CreateType(ctx context.Context, t *Type) error
	ListTypes(ctx context.Context) ([]Type, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, e *Equipment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Equipment, error) {
	var e Equipment
	err := r.db.WithContext(ctx).First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Equipment, int64, error) {
	var items []Equipment
	var total int64

	query := r.db.WithContext(ctx).Model(&Equipment{})

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR serial_number ILIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *RepositoryImpl) Update(ctx context.Context, e *Equipment) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// DueWithin returns non-retired equipment whose calibration or maintenance
// falls due inside the window
func (r *RepositoryImpl) DueWithin(ctx context.Context, days int) ([]Equipment, error) {
	var items []Equipment
	cutoff := time.Now().UTC().AddDate(0, 0, days)
	err := r.db.WithContext(ctx).
		Where("status <> ?", StatusRetired).
		Where("next_calibration <= ? OR next_maintenance <= ?", cutoff, cutoff).
		Order("next_calibration ASC").
		Find(&items).Error
	return items, err
}

func (r *RepositoryImpl) CreateRecord(ctx context.Context, record *ServiceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *RepositoryImpl) FindRecord(ctx context.Context, recordID uint64) (*ServiceRecord, error) {
	var record ServiceRecord
	err := r.db.WithContext(ctx).First(&record, recordID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RepositoryImpl) ListRecords(ctx context.Context, equipmentID uint64) ([]ServiceRecord, error) {
	var records []ServiceRecord
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("service_date DESC").
		Find(&records).Error
	return records, err
}

func (r *RepositoryImpl) UpdateRecord(ctx context.Context, record *ServiceRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// RollNextDue moves the matching due date forward, never backward. The
// guard keeps a late-arriving old record from regressing the schedule.
func (r *RepositoryImpl) RollNextDue(ctx context.Context, equipmentID uint64, serviceType ServiceType, next time.Time) error {
	column := "next_maintenance"
	if serviceType == ServiceCalibration {
		column = "next_calibration"
	}
	return r.db.WithContext(ctx).Model(&Equipment{}).
		Where("id = ?", equipmentID).
		Where(column+" IS NULL OR "+column+" < ?", next).
		Update(column, next).Error
}

func (r *RepositoryImpl) CreateType(ctx context.Context, t *Type) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RepositoryImpl) ListTypes(ctx context.Context) ([]Type, error) {
	var types []Type
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&types).Error
	return types, err
}
