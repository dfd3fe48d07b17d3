package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type ListFilter struct {
	Search string
	Status Status
	Type   string
}

type Repository interface {
	Create(ctx context.Context, a *Audit) error
	FindByID(ctx context.Context, id uint64) (*Audit, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Audit, int64, error)
	Update(ctx context.Context, a *Audit) error
	NextSequence(ctx context.Context, year int) (int, error)
	CreateItem(ctx context.Context, item *ChecklistItem) error
	FindItem(ctx context.Context, itemID uint64) (*ChecklistItem, error)
	ListItems(ctx context.Context, auditID uint64) ([]ChecklistItem, error)
	UpdateItem(ctx context.Context, item *ChecklistItem) error
	CreateFinding(ctx context.Context, finding *Finding) error
	ListFindings(ctx context.Context, auditID uint64) ([]Finding, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, a *Audit) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Audit, error) {
	var a Audit
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Audit, int64, error) {
	var audits []Audit
	var total int64

	query := r.db.WithContext(ctx).Model(&Audit{})

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR code ILIKE ? OR scope ILIKE ?", like, like, like)
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
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&audits).Error

	return audits, total, err
}

func (r *RepositoryImpl) Update(ctx context.Context, a *Audit) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// NextSequence yields the next yearly-sequential number for audit codes
func (r *RepositoryImpl) NextSequence(ctx context.Context, year int) (int, error) {
	var count int64
	prefix := fmt.Sprintf("AUD-%d-%%", year)
	err := r.db.WithContext(ctx).Model(&Audit{}).
		Where("code LIKE ?", prefix).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

func (r *RepositoryImpl) CreateItem(ctx context.Context, item *ChecklistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *RepositoryImpl) FindItem(ctx context.Context, itemID uint64) (*ChecklistItem, error) {
	var item ChecklistItem
	err := r.db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RepositoryImpl) ListItems(ctx context.Context, auditID uint64) ([]ChecklistItem, error) {
	var items []ChecklistItem
	err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *RepositoryImpl) UpdateItem(ctx context.Context, item *ChecklistItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *RepositoryImpl) CreateFinding(ctx context.Context, finding *Finding) error {
	return r.db.WithContext(ctx).Create(finding).Error
}

func (r *RepositoryImpl) ListFindings(ctx context.Context, auditID uint64) ([]Finding, error) {
	var findings []Finding
	err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("recorded_at DESC").
		Find(&findings).Error
	return findings, err
}
