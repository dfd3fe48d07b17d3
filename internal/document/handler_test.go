package document

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/middleware"
	"alpha-qms/internal/user"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateDocument(ctx context.Context, actorID uint64, role user.Role, input CreateInput) (*Document, error) {
	args := m.Called(ctx, actorID, role, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockService) GetDocument(ctx context.Context, docID uint64, actorID uint64, ip string) (*DocumentDetail, error) {
	args := m.Called(ctx, docID, actorID, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentDetail), args.Error(1)
}

func (m *MockService) ListDocuments(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedDocuments, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedDocuments), args.Error(1)
}

func (m *MockService) EditDocument(ctx context.Context, docID uint64, actorID uint64, role user.Role, input EditInput) (*Document, error) {
	args := m.Called(ctx, docID, actorID, role, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockService) SubmitForApproval(ctx context.Context, docID uint64, actorID uint64, role user.Role, approverIDs []uint64, deadline *time.Time) ([]ApprovalFlow, error) {
	args := m.Called(ctx, docID, actorID, role, approverIDs, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ApprovalFlow), args.Error(1)
}

func (m *MockService) RestoreVersion(ctx context.Context, docID, versionID, actorID uint64, role user.Role) (*Version, error) {
	args := m.Called(ctx, docID, versionID, actorID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Version), args.Error(1)
}

func (m *MockService) ListVersions(ctx context.Context, docID uint64) ([]Version, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Version), args.Error(1)
}

func (m *MockService) ConfirmReading(ctx context.Context, docID, actorID uint64, ip string) (bool, error) {
	args := m.Called(ctx, docID, actorID, ip)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) MarkObsolete(ctx context.Context, docID, actorID uint64, role user.Role) (*Document, error) {
	args := m.Called(ctx, docID, actorID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockService) ScanExpiring(ctx context.Context, days int) ([]Document, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockService) CreateType(ctx context.Context, actorID uint64, role user.Role, t *Type) error {
	args := m.Called(ctx, actorID, role, t)
	return args.Error(0)
}

func (m *MockService) ListTypes(ctx context.Context) ([]Type, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Type), args.Error(1)
}

// fakeAuth stands in for the JWT middleware in handler tests
func fakeAuth(userID uint64, role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	}
}

func setupRouter(service Service, userID uint64, role user.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(service)

	router := gin.New()
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api", fakeAuth(userID, role))
	api.POST("/documents", handler.Create)
	api.GET("/documents", handler.List)
	api.GET("/documents/:id", handler.Show)
	api.PUT("/documents/:id", handler.Edit)
	api.POST("/documents/:id/submit", handler.Submit)
	api.POST("/documents/:id/readings", handler.ConfirmReading)

	return router
}

func TestCreateHandler_Success(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleQualityManager)

	service.On("CreateDocument", mock.Anything, uint64(4), user.RoleQualityManager, mock.MatchedBy(func(in CreateInput) bool {
		return in.Title == "Quality Manual" && in.Content == "chapter one"
	})).Return(&Document{
		ID:             1,
		Code:           "MAN-2026-AB12CD34",
		Title:          "Quality Manual",
		Status:         StatusDraft,
		CurrentVersion: "1.0",
	}, nil)

	body, _ := json.Marshal(gin.H{
		"title":   "Quality Manual",
		"type":    "MAN",
		"content": "chapter one",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var doc Document
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, StatusDraft, doc.Status)
	service.AssertExpectations(t)
}

func TestCreateHandler_MissingContent(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleQualityManager)

	body, _ := json.Marshal(gin.H{
		"title": "Quality Manual",
		"type":  "MAN",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	service.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateHandler_BadValidUntil(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleQualityManager)

	body, _ := json.Marshal(gin.H{
		"title":       "Quality Manual",
		"type":        "MAN",
		"content":     "chapter one",
		"valid_until": "31-12-2026",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestShowHandler_NotFound(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleReader)

	service.On("GetDocument", mock.Anything, uint64(99), uint64(4), mock.Anything).
		Return(nil, errors.NotFound("Document not found", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/documents/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShowHandler_InvalidID(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleReader)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitHandler_ForwardsApprovers(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleQualityManager)

	service.On("SubmitForApproval", mock.Anything, uint64(1), uint64(4), user.RoleQualityManager,
		[]uint64{7, 8}, (*time.Time)(nil)).
		Return([]ApprovalFlow{
			{ID: 10, DocumentID: 1, ApproverID: 7, Status: ApprovalPending},
			{ID: 11, DocumentID: 1, ApproverID: 8, Status: ApprovalPending},
		}, nil)

	body, _ := json.Marshal(gin.H{"approver_ids": []uint64{7, 8}})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/1/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	service.AssertExpectations(t)
}

func TestConfirmReadingHandler_Idempotent(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, 4, user.RoleReader)

	service.On("ConfirmReading", mock.Anything, uint64(1), uint64(4), mock.Anything).
		Return(false, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/1/readings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
