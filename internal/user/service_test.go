package user

import (
	"alpha-qms/internal/errors"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uint64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, query string, limit int) ([]User, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) IncreaseTokenVersion(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	apiErr, ok := errors.IsAPIError(err)
	assert.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(h)
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "maria@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	u := &User{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "s3cret-pass",
		Role:     RoleQualityManager,
	}

	err := service.Register(context.Background(), RoleAdministrator, u)

	assert.NoError(t, err)
	assert.Empty(t, u.Password)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	repo.AssertExpectations(t)
}

func TestRegister_AdminOnly(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	err := service.Register(context.Background(), RoleQualityManager, &User{
		Email: "x@example.com",
		Role:  RoleReader,
	})

	assertStatus(t, err, http.StatusForbidden)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_UnknownRole(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	err := service.Register(context.Background(), RoleAdministrator, &User{
		Email: "x@example.com",
		Role:  Role("superuser"),
	})

	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "maria@example.com").Return(&User{ID: 1}, nil)

	err := service.Register(context.Background(), RoleAdministrator, &User{
		Email: "maria@example.com",
		Role:  RoleReader,
	})

	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestLogin_ByUsername(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByUsername", mock.Anything, "maria").Return(&User{
		ID:           1,
		Username:     "maria",
		PasswordHash: hash(t, "s3cret-pass"),
		IsActive:     true,
	}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	u, err := service.Login(context.Background(), "maria", "s3cret-pass")

	assert.NoError(t, err)
	assert.NotNil(t, u.LastLoginAt)
	repo.AssertExpectations(t)
}

func TestLogin_FallsBackToEmail(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByUsername", mock.Anything, "maria@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("FindByEmail", mock.Anything, "maria@example.com").Return(&User{
		ID:           1,
		PasswordHash: hash(t, "s3cret-pass"),
		IsActive:     true,
	}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := service.Login(context.Background(), "maria@example.com", "s3cret-pass")

	assert.NoError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByUsername", mock.Anything, "maria").Return(&User{
		ID:           1,
		PasswordHash: hash(t, "s3cret-pass"),
		IsActive:     true,
	}, nil)

	_, err := service.Login(context.Background(), "maria", "wrong")

	assertStatus(t, err, http.StatusUnauthorized)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLogin_InactiveUser(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByUsername", mock.Anything, "maria").Return(&User{
		ID:           1,
		PasswordHash: hash(t, "s3cret-pass"),
		IsActive:     false,
	}, nil)

	_, err := service.Login(context.Background(), "maria", "s3cret-pass")

	assertStatus(t, err, http.StatusUnauthorized)
}

func TestChangeRole_RevokesTokens(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("FindByID", mock.Anything, uint64(2)).Return(&User{
		ID:           2,
		Role:         RoleReader,
		TokenVersion: 3,
	}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.Role == RoleApprover && u.TokenVersion == 4
	})).Return(nil)

	u, err := service.ChangeRole(context.Background(), RoleAdministrator, 2, RoleApprover)

	assert.NoError(t, err)
	assert.Equal(t, RoleApprover, u.Role)
	repo.AssertExpectations(t)
}

func TestDeactivateUser_SelfBlocked(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	err := service.DeactivateUser(context.Background(), 1, RoleAdministrator, 1)

	assertStatus(t, err, http.StatusUnprocessableEntity)
	repo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeactivateUser_RevokesTokens(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("SetActive", mock.Anything, uint64(2), false).Return(nil)
	repo.On("IncreaseTokenVersion", mock.Anything, uint64(2)).Return(nil)

	err := service.DeactivateUser(context.Background(), 1, RoleAdministrator, 2)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeactivateUser_NotFound(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo)

	repo.On("SetActive", mock.Anything, uint64(99), false).Return(gorm.ErrRecordNotFound)

	err := service.DeactivateUser(context.Background(), 1, RoleAdministrator, 99)

	assertStatus(t, err, http.StatusNotFound)
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdministrator.CanAdmin())
	assert.False(t, RoleQualityManager.CanAdmin())

	assert.True(t, RoleQualityManager.CanCreateDocuments())
	assert.False(t, RoleApprover.CanCreateDocuments())

	assert.True(t, RoleApprover.CanApproveDocuments())
	assert.False(t, RoleReader.CanApproveDocuments())

	assert.True(t, RoleAuditor.CanAudit())
	assert.False(t, RoleApprover.CanAudit())
}
