package document

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotSubmittable is returned when the draft -> in_review move lost the
// race: the document was no longer in draft when the update ran.
var ErrNotSubmittable = errors.New("document is not in a submittable state")

type ListFilter struct {
	Search string
	Type   string
	Status Status
}

type Repository interface {
	Create(ctx context.Context, doc *Document, version *Version) error
	FindByID(ctx context.Context, id uint64) (*Document, error)
	FindVersion(ctx context.Context, versionID uint64) (*Version, error)
	CurrentVersionOf(ctx context.Context, doc *Document) (*Version, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error)
	ListVersions(ctx context.Context, docID uint64) ([]Version, error)
	UpdateWithVersion(ctx context.Context, doc *Document, version *Version) error
	Update(ctx context.Context, doc *Document) error
	SubmitForApproval(ctx context.Context, docID uint64, flows []ApprovalFlow) ([]ApprovalFlow, error)
	RestoreVersion(ctx context.Context, doc *Document, newVersion *Version) error
	RecordReading(ctx context.Context, reading *Reading) (bool, error)
	ExpiringWithin(ctx context.Context, days int) ([]Document, error)
	CreateType(ctx context.Context, t *Type) error
	ListTypes(ctx context.Context) ([]Type, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// Create persists the document together with its initial version in one
// transaction; a document without a version never exists.
func (r *RepositoryImpl) Create(ctx context.Context, doc *Document, version *Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		version.DocumentID = doc.ID
		return tx.Create(version).Error
	})
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Document, error) {
	var doc Document
	err := r.db.WithContext(ctx).First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RepositoryImpl) FindVersion(ctx context.Context, versionID uint64) (*Version, error) {
	var v Version
	err := r.db.WithContext(ctx).First(&v, versionID).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *RepositoryImpl) CurrentVersionOf(ctx context.Context, doc *Document) (*Version, error) {
	var v Version
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND version = ?", doc.ID, doc.CurrentVersion).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error) {
	var documents []Document
	var total int64

	query := r.db.WithContext(ctx).Model(&Document{}).Where("active = ?", true)

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR code ILIKE ? OR keywords ILIKE ?", like, like, like)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&documents).Error

	return documents, total, err
}

func (r *RepositoryImpl) ListVersions(ctx context.Context, docID uint64) ([]Version, error) {
	var versions []Version
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at DESC").
		Find(&versions).Error
	return versions, err
}

// UpdateWithVersion saves in-place edits to a still-mutable document and
// its current version row together.
func (r *RepositoryImpl) UpdateWithVersion(ctx context.Context, doc *Document, version *Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return err
		}
		return tx.Save(version).Error
	})
}

func (r *RepositoryImpl) Update(ctx context.Context, doc *Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// SubmitForApproval flips draft -> in_review and fans out the approval rows
// in the same transaction. The conditional update is the guard against two
// concurrent submissions: the loser sees zero rows affected.
func (r *RepositoryImpl) SubmitForApproval(ctx context.Context, docID uint64, flows []ApprovalFlow) ([]ApprovalFlow, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Document{}).
			Where("id = ? AND status = ?", docID, StatusDraft).
			Update("status", StatusInReview)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotSubmittable
		}

		for i := range flows {
			flows[i].DocumentID = docID
			if err := tx.Create(&flows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flows, nil
}

// RestoreVersion creates the new version entry and moves the document's
// current-version pointer in one transaction.
func (r *RepositoryImpl) RestoreVersion(ctx context.Context, doc *Document, newVersion *Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newVersion.DocumentID = doc.ID
		if err := tx.Create(newVersion).Error; err != nil {
			return err
		}
		return tx.Save(doc).Error
	})
}

// RecordReading inserts a read confirmation; returns false when this
// (document, user, version) was already confirmed.
func (r *RepositoryImpl) RecordReading(ctx context.Context, reading *Reading) (bool, error) {
	err := r.db.WithContext(ctx).Create(reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *RepositoryImpl) ExpiringWithin(ctx context.Context, days int) ([]Document, error) {
	var documents []Document
	now := time.Now().UTC()
	limit := now.AddDate(0, 0, days)

	err := r.db.WithContext(ctx).
		Where("active = ? AND status = ?", true, StatusApproved).
		Where("valid_until IS NOT NULL AND valid_until > ? AND valid_until <= ?", now, limit).
		Order("valid_until ASC").
		Find(&documents).Error
	return documents, err
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
