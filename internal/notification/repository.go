package notification

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, n *EmailNotification) error
	MarkSent(ctx context.Context, id uint64) error
	MarkError(ctx context.Context, id uint64, cause string) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]EmailNotification, error)
	ListByRecipient(ctx context.Context, recipientID uint64, limit int) ([]EmailNotification, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, n *EmailNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *RepositoryImpl) MarkSent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&EmailNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  StatusSent,
			"sent_at": time.Now().UTC(),
		}).Error
}

func (r *RepositoryImpl) MarkError(ctx context.Context, id uint64, cause string) error {
	return r.db.WithContext(ctx).Model(&EmailNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     StatusError,
			"last_error": cause,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}

// ListPending returns undelivered rows still under the attempt cap,
// errored rows included so the reprocess pass retries them
func (r *RepositoryImpl) ListPending(ctx context.Context, maxAttempts, limit int) ([]EmailNotification, error) {
	var rows []EmailNotification
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempts < ?", []Status{StatusPending, StatusError}, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *RepositoryImpl) ListByRecipient(ctx context.Context, recipientID uint64, limit int) ([]EmailNotification, error) {
	var rows []EmailNotification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
