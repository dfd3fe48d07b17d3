package event

import (
	"alpha-qms/internal/worker"
	"context"
	"sync"
	"time"
)

// Event names raised by the aggregates
const (
	DocumentCreated          = "document_created"
	DocumentExpiringSoon     = "document_expiring_soon"
	ApprovalPending          = "approval_pending"
	NonConformityOpened      = "nonconformity_opened"
	CorrectiveActionAssigned = "corrective_action_assigned"
	ServiceRecordLogged      = "service_record_logged"
)

// Event is a fact that already happened; reactors must never fail the
// write path that produced it.
type Event struct {
	Name    string
	At      time.Time
	Payload any
}

// Payloads carried by events. Kept here so publishers and reactors don't
// import each other.

type DocumentCreatedPayload struct {
	DocumentID     uint64
	Code           string
	Title          string
	AuthorID       uint64
	DocumentTypeID *uint64
}

type DocumentExpiringPayload struct {
	DocumentID uint64
	Code       string
	Title      string
	AuthorID   uint64
	DaysLeft   int
}

type ApprovalPendingPayload struct {
	FlowID        uint64
	DocumentID    uint64
	DocumentTitle string
	ApproverID    uint64
	Deadline      *time.Time
}

type NonConformityOpenedPayload struct {
	NonConformityID uint64
	Code            string
	Title           string
	Severity        string
	OpenedByID      uint64
	ResponsibleID   *uint64
}

type CorrectiveActionAssignedPayload struct {
	ActionID        uint64
	NonConformityID uint64
	Code            string
	Description     string
	ResponsibleID   uint64
}

type ServiceRecordLoggedPayload struct {
	RecordID    uint64
	EquipmentID uint64
	ServiceType string
	Status      string
	NextService *time.Time
}

type Handler func(ctx context.Context, e Event)

// Bus fans events out to subscribers on the worker pool, one task per
// subscriber, so a slow or failing reactor can't block the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	pool     *worker.Pool
}

func NewBus(pool *worker.Pool) *Bus {
	return &Bus{pool: pool}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(name string, payload any) {
	e := Event{Name: name, At: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		handler := h
		b.pool.Submit(func(ctx context.Context) error {
			handler(ctx, e)
			return nil
		})
	}
}
