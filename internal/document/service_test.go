package document

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/event"
	"alpha-qms/internal/user"
	"alpha-qms/internal/worker"
	"alpha-qms/redis"
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, doc *Document, version *Version) error {
	args := m.Called(ctx, doc, version)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uint64) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) FindVersion(ctx context.Context, versionID uint64) (*Version, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Version), args.Error(1)
}

func (m *MockRepository) CurrentVersionOf(ctx context.Context, doc *Document) (*Version, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Version), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Document, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListVersions(ctx context.Context, docID uint64) ([]Version, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Version), args.Error(1)
}

func (m *MockRepository) UpdateWithVersion(ctx context.Context, doc *Document, version *Version) error {
	args := m.Called(ctx, doc, version)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) SubmitForApproval(ctx context.Context, docID uint64, flows []ApprovalFlow) ([]ApprovalFlow, error) {
	args := m.Called(ctx, docID, flows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ApprovalFlow), args.Error(1)
}

func (m *MockRepository) RestoreVersion(ctx context.Context, doc *Document, newVersion *Version) error {
	args := m.Called(ctx, doc, newVersion)
	return args.Error(0)
}

func (m *MockRepository) RecordReading(ctx context.Context, reading *Reading) (bool, error) {
	args := m.Called(ctx, reading)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExpiringWithin(ctx context.Context, days int) ([]Document, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) CreateType(ctx context.Context, t *Type) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) ListTypes(ctx context.Context) ([]Type, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Type), args.Error(1)
}

// newTestService wires the service against a dead redis and a real bus
func newTestService(repo Repository) (Service, *worker.Pool) {
	pool := worker.NewPool(1)
	bus := event.NewBus(pool)
	cache := redis.NewCache("127.0.0.1:1")
	return NewService(repo, cache, bus), pool
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	apiErr, ok := errors.IsAPIError(err)
	assert.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
}

func TestCreateDocument_Success(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) {
			args.Get(1).(*Document).ID = 1
		})

	doc, err := service.CreateDocument(context.Background(), 7, user.RoleQualityManager, CreateInput{
		Title:   "Quality Manual",
		Type:    "man",
		Content: "# Manual",
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, "1.0", doc.CurrentVersion)
	assert.Equal(t, uint64(7), doc.AuthorID)
	assert.Regexp(t, regexp.MustCompile(`^MAN-\d{4}-[0-9A-F-]{8}$`), doc.Code)
	repo.AssertExpectations(t)
}

func TestCreateDocument_ReaderForbidden(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	_, err := service.CreateDocument(context.Background(), 7, user.RoleReader, CreateInput{
		Title:   "Doc",
		Content: "x",
	})

	assertStatus(t, err, http.StatusForbidden)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateDocument_MissingContent(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	_, err := service.CreateDocument(context.Background(), 7, user.RoleAdministrator, CreateInput{
		Title:   "Doc",
		Content: "   ",
	})

	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestSubmitForApproval_NoApprovers(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	_, err := service.SubmitForApproval(context.Background(), 1, 7, user.RoleQualityManager, nil, nil)

	assertStatus(t, err, http.StatusUnprocessableEntity)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSubmitForApproval_DuplicateApprover(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:       1,
		AuthorID: 7,
		Status:   StatusDraft,
	}, nil)

	_, err := service.SubmitForApproval(context.Background(), 1, 7, user.RoleQualityManager,
		[]uint64{3, 5, 3}, nil)

	assertStatus(t, err, http.StatusUnprocessableEntity)
	repo.AssertNotCalled(t, "SubmitForApproval", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitForApproval_AlreadySubmitted(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:       1,
		AuthorID: 7,
		Status:   StatusDraft,
	}, nil)
	repo.On("SubmitForApproval", mock.Anything, uint64(1), mock.Anything).
		Return(nil, ErrNotSubmittable)

	_, err := service.SubmitForApproval(context.Background(), 1, 7, user.RoleQualityManager,
		[]uint64{3}, nil)

	assertStatus(t, err, http.StatusConflict)
}

func TestSubmitForApproval_WrongStatus(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:       1,
		AuthorID: 7,
		Status:   StatusObsolete,
	}, nil)

	_, err := service.SubmitForApproval(context.Background(), 1, 7, user.RoleQualityManager,
		[]uint64{3}, nil)

	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestSubmitForApproval_BuildsPendingFlows(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	deadline := time.Now().UTC().Add(72 * time.Hour)

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:       1,
		Title:    "SOP-7",
		AuthorID: 7,
		Status:   StatusDraft,
	}, nil)
	repo.On("SubmitForApproval", mock.Anything, uint64(1),
		mock.MatchedBy(func(flows []ApprovalFlow) bool {
			if len(flows) != 2 {
				return false
			}
			return flows[0].ApproverID == 3 && flows[0].OrderIndex == 1 &&
				flows[1].ApproverID == 5 && flows[1].OrderIndex == 2 &&
				flows[0].Status == ApprovalPending
		})).Return([]ApprovalFlow{
		{ID: 10, ApproverID: 3, Status: ApprovalPending},
		{ID: 11, ApproverID: 5, Status: ApprovalPending},
	}, nil)

	flows, err := service.SubmitForApproval(context.Background(), 1, 7, user.RoleQualityManager,
		[]uint64{3, 5}, &deadline)

	assert.NoError(t, err)
	assert.Len(t, flows, 2)
	repo.AssertExpectations(t)
}

func TestRestoreVersion_DemotesApproved(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	doc := &Document{ID: 1, AuthorID: 7, Status: StatusApproved, CurrentVersion: "1.3"}

	repo.On("FindByID", mock.Anything, uint64(1)).Return(doc, nil)
	repo.On("FindVersion", mock.Anything, uint64(20)).Return(&Version{
		ID:         20,
		DocumentID: 1,
		Label:      "1.1",
		Content:    "old content",
	}, nil)
	repo.On("RestoreVersion", mock.Anything, doc, mock.Anything).Return(nil)

	restored, err := service.RestoreVersion(context.Background(), 1, 20, 7, user.RoleQualityManager)

	assert.NoError(t, err)
	assert.Equal(t, "1.4", restored.Label)
	assert.Equal(t, "old content", restored.Content)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, "1.4", doc.CurrentVersion)
	repo.AssertExpectations(t)
}

func TestRestoreVersion_WrongDocument(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID: 1, AuthorID: 7, Status: StatusDraft, CurrentVersion: "1.0",
	}, nil)
	repo.On("FindVersion", mock.Anything, uint64(20)).Return(&Version{
		ID:         20,
		DocumentID: 99,
	}, nil)

	_, err := service.RestoreVersion(context.Background(), 1, 20, 7, user.RoleQualityManager)

	assertStatus(t, err, http.StatusNotFound)
}

func TestMarkObsolete_AdminOnly(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	_, err := service.MarkObsolete(context.Background(), 1, 7, user.RoleQualityManager)

	assertStatus(t, err, http.StatusForbidden)
}

func TestMarkObsolete_AlreadyObsolete(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:     1,
		Status: StatusObsolete,
	}, nil)

	_, err := service.MarkObsolete(context.Background(), 1, 7, user.RoleAdministrator)

	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestEditDocument_ApprovedImmutable(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:       1,
		AuthorID: 7,
		Status:   StatusApproved,
	}, nil)

	_, err := service.EditDocument(context.Background(), 1, 7, user.RoleQualityManager, EditInput{
		Title:   "Edited",
		Content: "new",
	})

	assertStatus(t, err, http.StatusUnprocessableEntity)
	repo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetDocument_NotFound(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(99)).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.GetDocument(context.Background(), 99, 7, "10.0.0.1")

	assertStatus(t, err, http.StatusNotFound)
}

func TestConfirmReading_OncePerVersion(t *testing.T) {
	repo := new(MockRepository)
	service, pool := newTestService(repo)
	defer pool.Shutdown()

	repo.On("FindByID", mock.Anything, uint64(1)).Return(&Document{
		ID:             1,
		CurrentVersion: "1.2",
	}, nil)
	repo.On("RecordReading", mock.Anything, mock.MatchedBy(func(r *Reading) bool {
		return r.DocumentID == 1 && r.UserID == 7 && r.Version == "1.2"
	})).Return(false, nil)

	recorded, err := service.ConfirmReading(context.Background(), 1, 7, "10.0.0.1")

	assert.NoError(t, err)
	assert.False(t, recorded)
	repo.AssertExpectations(t)
}
