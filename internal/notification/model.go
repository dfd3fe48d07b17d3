package notification

import (
	"time"
)

// Status is the delivery state of one queued email
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

// Notification types, one per domain event that produces mail
const (
	TypeDocumentCreated  = "document_created"
	TypeDocumentExpiring = "document_expiring"
	TypeApprovalPending  = "approval_pending"
	TypeNonConformity    = "nonconformity_opened"
	TypeActionAssigned   = "action_assigned"
)

// EmailNotification is a queued outbound email. Rows are written in their
// own transaction so a relay outage never rolls back the domain write
// that produced them.
type EmailNotification struct {
	ID          uint64     `json:"id"`
	RecipientID uint64     `json:"recipient_id"`
	Recipient   string     `json:"recipient"`
	Type        string     `json:"type"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      Status     `json:"status" gorm:"default:pending"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error"`
	EntityType  string     `json:"entity_type"`
	EntityID    uint64     `json:"entity_id"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at"`
}
