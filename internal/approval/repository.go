package approval

import (
	"alpha-qms/internal/document"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyResolved is returned when the pending -> terminal update hit
// zero rows: another writer resolved the flow first.
var ErrAlreadyResolved = errors.New("approval flow already resolved")

type Repository interface {
	FindFlow(ctx context.Context, flowID uint64) (*document.ApprovalFlow, error)
	ListPendingByApprover(ctx context.Context, approverID uint64, page, pageSize int) ([]document.ApprovalFlow, int64, error)
	ListByDocument(ctx context.Context, docID uint64) ([]document.ApprovalFlow, error)
	Approve(ctx context.Context, flowID, docID uint64, comments string) (*document.Document, error)
	Reject(ctx context.Context, flowID, docID uint64, comments string) (*document.Document, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) FindFlow(ctx context.Context, flowID uint64) (*document.ApprovalFlow, error) {
	var flow document.ApprovalFlow
	err := r.db.WithContext(ctx).First(&flow, flowID).Error
	if err != nil {
		return nil, err
	}
	return &flow, nil
}

func (r *RepositoryImpl) ListPendingByApprover(ctx context.Context, approverID uint64, page, pageSize int) ([]document.ApprovalFlow, int64, error) {
	var flows []document.ApprovalFlow
	var total int64

	query := r.db.WithContext(ctx).Model(&document.ApprovalFlow{}).
		Where("approver_id = ? AND status = ?", approverID, document.ApprovalPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("assigned_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&flows).Error

	return flows, total, err
}

func (r *RepositoryImpl) ListByDocument(ctx context.Context, docID uint64) ([]document.ApprovalFlow, error) {
	var flows []document.ApprovalFlow
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("order_index ASC, assigned_at ASC").
		Find(&flows).Error
	return flows, err
}

// Approve resolves one flow and, when it was the last pending one, flips
// the document to approved. The parent document row is locked FOR UPDATE
// before anything else so resolutions on the same document serialize:
// without that lock the two last approvers can each resolve their own row
// and still count the other's uncommitted row as pending, and nobody
// flips the document. The conditional update on status = pending then
// only has to lose cleanly to a duplicate resolve of the same flow.
func (r *RepositoryImpl) Approve(ctx context.Context, flowID, docID uint64, comments string) (*document.Document, error) {
	var doc document.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, docID).Error; err != nil {
			return err
		}

		now := time.Now().UTC()

		res := tx.Model(&document.ApprovalFlow{}).
			Where("id = ? AND status = ?", flowID, document.ApprovalPending).
			Updates(map[string]any{
				"status":       document.ApprovalApproved,
				"completed_at": now,
				"comments":     comments,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}

		var pending int64
		if err := tx.Model(&document.ApprovalFlow{}).
			Where("document_id = ? AND status = ?", docID, document.ApprovalPending).
			Count(&pending).Error; err != nil {
			return err
		}

		if pending == 0 {
			// join barrier cleared: the last approval advances the document
			if err := tx.Model(&document.Document{}).
				Where("id = ?", docID).
				Updates(map[string]any{
					"status":             document.StatusApproved,
					"last_revision_date": now,
				}).Error; err != nil {
				return err
			}
		}

		return tx.First(&doc, docID).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Reject resolves one flow as rejected, demotes the document to draft and
// cancels every other pending sibling, all in the same transaction. A
// single rejection always resets the whole approval round. Takes the same
// document lock as Approve so a racing approval and rejection on sibling
// rows resolve in a defined order.
func (r *RepositoryImpl) Reject(ctx context.Context, flowID, docID uint64, comments string) (*document.Document, error) {
	var doc document.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, docID).Error; err != nil {
			return err
		}

		now := time.Now().UTC()

		res := tx.Model(&document.ApprovalFlow{}).
			Where("id = ? AND status = ?", flowID, document.ApprovalPending).
			Updates(map[string]any{
				"status":       document.ApprovalRejected,
				"completed_at": now,
				"comments":     comments,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}

		if err := tx.Model(&document.ApprovalFlow{}).
			Where("document_id = ? AND status = ? AND id <> ?", docID, document.ApprovalPending, flowID).
			Update("status", document.ApprovalCancelled).Error; err != nil {
			return err
		}

		if err := tx.Model(&document.Document{}).
			Where("id = ?", docID).
			Update("status", document.StatusDraft).Error; err != nil {
			return err
		}

		return tx.First(&doc, docID).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
