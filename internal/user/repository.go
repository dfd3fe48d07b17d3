package user

import (
	"context"

	"gorm.io/gorm"
)

// Repository defines the interface for user data access
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id uint64) (*User, error)
	Search(ctx context.Context, query string, limit int) ([]User, error)
	Update(ctx context.Context, user *User) error
	IncreaseTokenVersion(ctx context.Context, id uint64) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *RepositoryImpl) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *RepositoryImpl) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search matches username, full name or email, active users only
func (r *RepositoryImpl) Search(ctx context.Context, query string, limit int) ([]User, error) {
	var users []User
	like := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("username ILIKE ? OR full_name ILIKE ? OR email ILIKE ?", like, like, like).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *RepositoryImpl) Update(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// IncreaseTokenVersion bumps the version so outstanding refresh tokens stop
// working
func (r *RepositoryImpl) IncreaseTokenVersion(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1")).Error
}

func (r *RepositoryImpl) SetActive(ctx context.Context, id uint64, active bool) error {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
