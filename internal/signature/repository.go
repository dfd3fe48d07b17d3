package signature

import (
	"alpha-qms/internal/document"
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, sig *DocumentSignature) error
	FindByID(ctx context.Context, id uint64) (*DocumentSignature, error)
	ListByDocument(ctx context.Context, documentID uint64) ([]DocumentSignature, error)
	ListBySigner(ctx context.Context, signerID uint64) ([]DocumentSignature, error)
	Invalidate(ctx context.Context, id uint64) error
	FindDocument(ctx context.Context, documentID uint64) (*document.Document, error)
	FindVersionByLabel(ctx context.Context, documentID uint64, label string) (*document.Version, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, sig *DocumentSignature) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*DocumentSignature, error) {
	var sig DocumentSignature
	err := r.db.WithContext(ctx).First(&sig, id).Error
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *RepositoryImpl) ListByDocument(ctx context.Context, documentID uint64) ([]DocumentSignature, error) {
	var sigs []DocumentSignature
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("signed_at DESC").
		Find(&sigs).Error
	return sigs, err
}

func (r *RepositoryImpl) ListBySigner(ctx context.Context, signerID uint64) ([]DocumentSignature, error) {
	var sigs []DocumentSignature
	err := r.db.WithContext(ctx).
		Where("signer_id = ?", signerID).
		Order("signed_at DESC").
		Find(&sigs).Error
	return sigs, err
}

// Invalidate is a one-way flip; nothing ever sets valid back to true
func (r *RepositoryImpl) Invalidate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&DocumentSignature{}).
		Where("id = ?", id).
		Update("valid", false).Error
}

func (r *RepositoryImpl) FindDocument(ctx context.Context, documentID uint64) (*document.Document, error) {
	var doc document.Document
	err := r.db.WithContext(ctx).First(&doc, documentID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RepositoryImpl) FindVersionByLabel(ctx context.Context, documentID uint64, label string) (*document.Version, error) {
	var version document.Version
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND version = ?", documentID, label).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}
