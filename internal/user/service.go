package user

import (
	"alpha-qms/internal/errors"
	"context"
	defErrors "errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, actorRole Role, u *User) error
	Login(ctx context.Context, login, password string) (*User, error)
	GetUserByID(ctx context.Context, id uint64) (*User, error)
	SearchUsers(ctx context.Context, query string) ([]SafeUser, error)
	ChangeRole(ctx context.Context, actorRole Role, id uint64, role Role) (*User, error)
	IncreaseTokenVersion(ctx context.Context, id uint64) error
	DeactivateUser(ctx context.Context, actorID uint64, actorRole Role, id uint64) error
}

// DefaultService implements Service
type DefaultService struct {
	repository Repository
}

func NewService(repository Repository) Service {
	return &DefaultService{repository: repository}
}

func validRole(r Role) bool {
	switch r {
	case RoleAdministrator, RoleQualityManager, RoleApprover, RoleReader, RoleAuditor:
		return true
	}
	return false
}

// Register creates a new account. Only administrators may create users,
// accounts in a controlled system are provisioned, never self-served.
func (s *DefaultService) Register(ctx context.Context, actorRole Role, u *User) error {
	if !actorRole.CanAdmin() {
		return errors.Forbidden("Only administrators can register users", nil)
	}
	if !validRole(u.Role) {
		return errors.UnprocessableEntity("Unknown role", nil)
	}

	_, err := s.repository.FindByEmail(ctx, u.Email)
	if err != nil && !defErrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		return errors.UnprocessableEntity("User already registered", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal(err)
	}
	u.PasswordHash = string(hashedPassword)
	u.Password = ""
	u.IsActive = true

	if err := s.repository.Create(ctx, u); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("Username or email already taken", err)
		}
		return err
	}
	return nil
}

// Login authenticates by username or email
func (s *DefaultService) Login(ctx context.Context, login, password string) (*User, error) {
	u, err := s.repository.FindByUsername(ctx, login)
	if defErrors.Is(err, gorm.ErrRecordNotFound) {
		u, err = s.repository.FindByEmail(ctx, login)
	}
	if err != nil {
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	if !u.IsActive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.repository.Update(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*User, error) {
	u, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("User not found", err)
		}
		return nil, err
	}
	return u, nil
}

func (s *DefaultService) SearchUsers(ctx context.Context, query string) ([]SafeUser, error) {
	users, err := s.repository.Search(ctx, query, 25)
	if err != nil {
		return nil, err
	}

	safe := make([]SafeUser, 0, len(users))
	for i := range users {
		safe = append(safe, users[i].ToSafeUser())
	}
	return safe, nil
}

// ChangeRole reassigns a user's role, revoking outstanding tokens so the
// old capabilities stop applying immediately
func (s *DefaultService) ChangeRole(ctx context.Context, actorRole Role, id uint64, role Role) (*User, error) {
	if !actorRole.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can change roles", nil)
	}
	if !validRole(role) {
		return nil, errors.UnprocessableEntity("Unknown role", nil)
	}

	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Role = role
	u.TokenVersion++
	if err := s.repository.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *DefaultService) IncreaseTokenVersion(ctx context.Context, id uint64) error {
	return s.repository.IncreaseTokenVersion(ctx, id)
}

// DeactivateUser disables the account and revokes its tokens
func (s *DefaultService) DeactivateUser(ctx context.Context, actorID uint64, actorRole Role, id uint64) error {
	if !actorRole.CanAdmin() {
		return errors.Forbidden("Only administrators can deactivate users", nil)
	}
	if actorID == id {
		return errors.UnprocessableEntity("You cannot deactivate your own account", nil)
	}

	if err := s.repository.SetActive(ctx, id, false); err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("User not found", err)
		}
		return err
	}
	return s.repository.IncreaseTokenVersion(ctx, id)
}
