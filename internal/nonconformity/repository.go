package nonconformity

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Search   string
	Status   Status
	Severity Severity
}

// Stats is the dashboard summary for non-conformities
type Stats struct {
	Total       int64 `json:"total"`
	Open        int64 `json:"open"`
	InTreatment int64 `json:"in_treatment"`
	Closed      int64 `json:"closed"`
	Overdue     int64 `json:"overdue"`
	Critical    int64 `json:"critical"`
}

type Repository interface {
	Create(ctx context.Context, nc *NonConformity) error
	FindByID(ctx context.Context, id uint64) (*NonConformity, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]NonConformity, int64, error)
	Update(ctx context.Context, nc *NonConformity) error
	NextSequence(ctx context.Context, year int) (int, error)
	CreateAction(ctx context.Context, nc *NonConformity, action *CorrectiveAction) error
	FindAction(ctx context.Context, actionID uint64) (*CorrectiveAction, error)
	ListActions(ctx context.Context, ncID uint64) ([]CorrectiveAction, error)
	UpdateAction(ctx context.Context, action *CorrectiveAction) error
	CountOutstandingActions(ctx context.Context, ncID uint64) (int64, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, nc *NonConformity) error {
	return r.db.WithContext(ctx).Create(nc).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*NonConformity, error) {
	var nc NonConformity
	err := r.db.WithContext(ctx).First(&nc, id).Error
	if err != nil {
		return nil, err
	}
	return &nc, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]NonConformity, int64, error) {
	var ncs []NonConformity
	var total int64

	query := r.db.WithContext(ctx).Model(&NonConformity{})

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR code ILIKE ? OR description ILIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("opened_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&ncs).Error

	return ncs, total, err
}

func (r *RepositoryImpl) Update(ctx context.Context, nc *NonConformity) error {
	return r.db.WithContext(ctx).Save(nc).Error
}

// NextSequence yields the next yearly-sequential number for NC codes
func (r *RepositoryImpl) NextSequence(ctx context.Context, year int) (int, error) {
	var count int64
	prefix := fmt.Sprintf("NC-%d-%%", year)
	err := r.db.WithContext(ctx).Model(&NonConformity{}).
		Where("code LIKE ?", prefix).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

// CreateAction persists the action and, when this is the first action on a
// still-open NC, advances the NC to in_treatment in the same transaction.
func (r *RepositoryImpl) CreateAction(ctx context.Context, nc *NonConformity, action *CorrectiveAction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		action.NonConformityID = nc.ID
		if err := tx.Create(action).Error; err != nil {
			return err
		}

		if nc.Status == StatusOpen {
			res := tx.Model(&NonConformity{}).
				Where("id = ? AND status = ?", nc.ID, StatusOpen).
				Update("status", StatusInTreatment)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				nc.Status = StatusInTreatment
			}
		}
		return nil
	})
}

func (r *RepositoryImpl) FindAction(ctx context.Context, actionID uint64) (*CorrectiveAction, error) {
	var action CorrectiveAction
	err := r.db.WithContext(ctx).First(&action, actionID).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *RepositoryImpl) ListActions(ctx context.Context, ncID uint64) ([]CorrectiveAction, error) {
	var actions []CorrectiveAction
	err := r.db.WithContext(ctx).
		Where("non_conformity_id = ?", ncID).
		Order("created_at DESC").
		Find(&actions).Error
	return actions, err
}

func (r *RepositoryImpl) UpdateAction(ctx context.Context, action *CorrectiveAction) error {
	return r.db.WithContext(ctx).Save(action).Error
}

func (r *RepositoryImpl) CountOutstandingActions(ctx context.Context, ncID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&CorrectiveAction{}).
		Where("non_conformity_id = ? AND status NOT IN ?", ncID,
			[]ActionStatus{ActionCompleted, ActionCancelled}).
		Count(&count).Error
	return count, err
}

func (r *RepositoryImpl) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx).Model(&NonConformity{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.Open, r.db.WithContext(ctx).Model(&NonConformity{}).Where("status = ?", StatusOpen)},
		{&stats.InTreatment, r.db.WithContext(ctx).Model(&NonConformity{}).Where("status = ?", StatusInTreatment)},
		{&stats.Closed, r.db.WithContext(ctx).Model(&NonConformity{}).Where("status = ?", StatusClosed)},
		{&stats.Critical, r.db.WithContext(ctx).Model(&NonConformity{}).Where("severity = ?", SeverityCritical)},
		{&stats.Overdue, r.db.WithContext(ctx).Model(&NonConformity{}).
			Where("deadline < ? AND status <> ?", time.Now().UTC(), StatusClosed)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return &stats, nil
}
