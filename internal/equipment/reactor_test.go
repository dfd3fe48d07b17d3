package equipment

import (
	"alpha-qms/internal/event"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, e *Equipment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uint64) (*Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Equipment), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Equipment, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Equipment), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, e *Equipment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRepository) DueWithin(ctx context.Context, days int) ([]Equipment, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Equipment), args.Error(1)
}

func (m *MockRepository) CreateRecord(ctx context.Context, record *ServiceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) FindRecord(ctx context.Context, recordID uint64) (*ServiceRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ServiceRecord), args.Error(1)
}

func (m *MockRepository) ListRecords(ctx context.Context, equipmentID uint64) ([]ServiceRecord, error) {
	args := m.Called(ctx, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ServiceRecord), args.Error(1)
}

func (m *MockRepository) UpdateRecord(ctx context.Context, record *ServiceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) RollNextDue(ctx context.Context, equipmentID uint64, serviceType ServiceType, next time.Time) error {
	args := m.Called(ctx, equipmentID, serviceType, next)
	return args.Error(0)
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

func serviceEvent(payload event.ServiceRecordLoggedPayload) event.Event {
	return event.Event{
		Name:    event.ServiceRecordLogged,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

func TestReactor_RollsCompletedCalibration(t *testing.T) {
	repo := new(MockRepository)
	reactor := NewReactor(repo)

	next := time.Now().UTC().AddDate(1, 0, 0)
	repo.On("RollNextDue", mock.Anything, uint64(3), ServiceCalibration, next).Return(nil)

	reactor.Handle(context.Background(), serviceEvent(event.ServiceRecordLoggedPayload{
		RecordID:    10,
		EquipmentID: 3,
		ServiceType: string(ServiceCalibration),
		Status:      string(RecordCompleted),
		NextService: &next,
	}))

	repo.AssertExpectations(t)
}

func TestReactor_IgnoresScheduledRecord(t *testing.T) {
	repo := new(MockRepository)
	reactor := NewReactor(repo)

	next := time.Now().UTC().AddDate(0, 6, 0)
	reactor.Handle(context.Background(), serviceEvent(event.ServiceRecordLoggedPayload{
		EquipmentID: 3,
		ServiceType: string(ServiceCalibration),
		Status:      string(RecordScheduled),
		NextService: &next,
	}))

	repo.AssertNotCalled(t, "RollNextDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReactor_IgnoresRepair(t *testing.T) {
	repo := new(MockRepository)
	reactor := NewReactor(repo)

	next := time.Now().UTC().AddDate(0, 6, 0)
	reactor.Handle(context.Background(), serviceEvent(event.ServiceRecordLoggedPayload{
		EquipmentID: 3,
		ServiceType: string(ServiceRepair),
		Status:      string(RecordCompleted),
		NextService: &next,
	}))

	repo.AssertNotCalled(t, "RollNextDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReactor_IgnoresMissingNextService(t *testing.T) {
	repo := new(MockRepository)
	reactor := NewReactor(repo)

	reactor.Handle(context.Background(), serviceEvent(event.ServiceRecordLoggedPayload{
		EquipmentID: 3,
		ServiceType: string(ServiceMaintenance),
		Status:      string(RecordCompleted),
	}))

	repo.AssertNotCalled(t, "RollNextDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReactor_IgnoresOtherEvents(t *testing.T) {
	repo := new(MockRepository)
	reactor := NewReactor(repo)

	reactor.Handle(context.Background(), event.Event{
		Name:    event.DocumentCreated,
		Payload: event.DocumentCreatedPayload{DocumentID: 1},
	})

	repo.AssertNotCalled(t, "RollNextDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
