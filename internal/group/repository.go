package group

import (
	"alpha-qms/internal/document"
	"alpha-qms/internal/user"
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, g *Group) error
	FindByID(ctx context.Context, id uint64) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	Update(ctx context.Context, g *Group) error
	AddMember(ctx context.Context, g *Group, userID uint64) error
	RemoveMember(ctx context.Context, g *Group, userID uint64) error
	LinkDocumentType(ctx context.Context, g *Group, typeID uint64) error
	UnlinkDocumentType(ctx context.Context, g *Group, typeID uint64) error
	RecipientsForDocumentType(ctx context.Context, docTypeID uint64) ([]user.User, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, g *Group) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Group, error) {
	var g Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("DocumentTypes").
		First(&g, id).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&groups).Error
	return groups, err
}

func (r *RepositoryImpl) Update(ctx context.Context, g *Group) error {
	return r.db.WithContext(ctx).Omit("Members", "DocumentTypes").Save(g).Error
}

func (r *RepositoryImpl) AddMember(ctx context.Context, g *Group, userID uint64) error {
	return r.db.WithContext(ctx).Model(g).
		Association("Members").
		Append(&user.User{ID: userID})
}

func (r *RepositoryImpl) RemoveMember(ctx context.Context, g *Group, userID uint64) error {
	return r.db.WithContext(ctx).Model(g).
		Association("Members").
		Delete(&user.User{ID: userID})
}

func (r *RepositoryImpl) LinkDocumentType(ctx context.Context, g *Group, typeID uint64) error {
	return r.db.WithContext(ctx).Model(g).
		Association("DocumentTypes").
		Append(&document.Type{ID: typeID})
}

func (r *RepositoryImpl) UnlinkDocumentType(ctx context.Context, g *Group, typeID uint64) error {
	return r.db.WithContext(ctx).Model(g).
		Association("DocumentTypes").
		Delete(&document.Type{ID: typeID})
}

// RecipientsForDocumentType resolves the fan-out audience for a freshly
// created document: active members of active, notifying groups linked to
// the document's type. Distinct because a user can sit in several groups.
func (r *RepositoryImpl) RecipientsForDocumentType(ctx context.Context, docTypeID uint64) ([]user.User, error) {
	var users []user.User
	err := r.db.WithContext(ctx).
		Table("users").
		Distinct("users.*").
		Joins("JOIN group_members gm ON gm.user_id = users.id").
		Joins("JOIN groups g ON g.id = gm.group_id").
		Joins("JOIN group_document_types gdt ON gdt.group_id = g.id").
		Where("gdt.type_id = ?", docTypeID).
		Where("g.active = ? AND g.notify_new_documents = ?", true, true).
		Where("users.is_active = ?", true).
		Find(&users).Error
	return users, err
}
