package document

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Status is the closed lifecycle set for a controlled document.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusObsolete Status = "obsolete"
)

// CanTransition reports whether a document may move from s to target.
// Approval/rejection transitions are driven by the approval processor;
// obsolete is a manual administrative move.
func (s Status) CanTransition(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusInReview || target == StatusObsolete
	case StatusInReview:
		return target == StatusApproved || target == StatusDraft || target == StatusObsolete
	case StatusApproved:
		return target == StatusDraft || target == StatusObsolete
	case StatusObsolete:
		return false
	}
	return false
}

// Editable reports whether content may still be mutated in place.
// Approved documents are immutable; changes require a new version.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusInReview
}

// ApprovalStatus is the closed state set for one approver's slot.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalCancelled ApprovalStatus = "cancelled"
)

// ApprovalStage tags which review round step the flow belongs to
type ApprovalStage string

const (
	StageReview   ApprovalStage = "review"
	StageApproval ApprovalStage = "approval"
)

// Document is a controlled record with a lifecycle status and one or
// more content versions. CurrentVersion always references an existing
// DocumentVersion row for this document.
type Document struct {
	ID               uint64         `json:"id"`
	Code             string         `json:"code" gorm:"uniqueIndex"`
	Title            string         `json:"title"`
	Type             string         `json:"type"`
	DocumentTypeID   *uint64        `json:"document_type_id"`
	Status           Status         `json:"status" gorm:"default:draft"`
	CurrentVersion   string         `json:"current_version" gorm:"default:1.0"`
	Department       string         `json:"department"`
	Keywords         string         `json:"keywords"`
	Summary          string         `json:"summary"`
	AuthorID         uint64         `json:"author_id"`
	ValidUntil       *time.Time     `json:"valid_until"`
	LastRevisionDate *time.Time     `json:"last_revision_date"`
	Active           bool           `json:"active" gorm:"default:true"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Versions         []Version      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Readings         []Reading      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ApprovalFlows    []ApprovalFlow `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// IsExpired reports whether the validity date has passed
func (d *Document) IsExpired() bool {
	if d.ValidUntil == nil {
		return false
	}
	return time.Now().UTC().After(*d.ValidUntil)
}

// DaysToExpire returns signed whole days until expiry, negative once
// expired, nil when no validity date is set
func (d *Document) DaysToExpire() *int {
	if d.ValidUntil == nil {
		return nil
	}
	// floored so the value goes negative the moment expiry passes
	days := int(math.Floor(time.Until(*d.ValidUntil).Hours() / 24))
	return &days
}

// Version is one immutable content snapshot of a document. The draft
// version is the single exception: it mutates in place until the
// document leaves the editable states.
type Version struct {
	ID         uint64    `json:"id"`
	DocumentID uint64    `json:"document_id"`
	Label      string    `json:"version" gorm:"column:version"`
	Content    string    `json:"content"`
	Changelog  string    `json:"changelog"`
	CreatedBy  uint64    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// NextVersionLabel computes the label that follows current: numeric + 0.1
// formatted to one decimal, so "1.3" becomes "1.4"
func NextVersionLabel(current string) (string, error) {
	v, err := strconv.ParseFloat(current, 64)
	if err != nil {
		return "", fmt.Errorf("malformed version label %q: %w", current, err)
	}
	return fmt.Sprintf("%.1f", v+0.1), nil
}

// ApprovalFlow is one approver's pending/resolved decision slot within a
// document's current review round. Order is informational; approvers may
// resolve in any order.
type ApprovalFlow struct {
	ID          uint64         `json:"id"`
	DocumentID  uint64         `json:"document_id"`
	ApproverID  uint64         `json:"approver_id"`
	Stage       ApprovalStage  `json:"stage" gorm:"default:approval"`
	Status      ApprovalStatus `json:"status" gorm:"default:pending"`
	OrderIndex  int            `json:"order_index" gorm:"default:1"`
	Comments    string         `json:"comments"`
	Deadline    *time.Time     `json:"deadline"`
	AssignedAt  time.Time      `json:"assigned_at"`
	CompletedAt *time.Time     `json:"completed_at"`
}

// IsOverdue reports whether a still-pending flow passed its deadline.
// Deadlines are advisory, overdue flows remain resolvable.
func (f *ApprovalFlow) IsOverdue() bool {
	if f.Deadline == nil || f.Status != ApprovalPending {
		return false
	}
	return time.Now().UTC().After(*f.Deadline)
}

// Reading is a read-confirmation record, at most one per
// (document, user, version)
type Reading struct {
	ID         uint64    `json:"id"`
	DocumentID uint64    `json:"document_id" gorm:"uniqueIndex:idx_reading_once"`
	UserID     uint64    `json:"user_id" gorm:"uniqueIndex:idx_reading_once"`
	Version    string    `json:"version" gorm:"uniqueIndex:idx_reading_once"`
	IPAddress  string    `json:"ip_address"`
	ReadAt     time.Time `json:"read_at"`
}

// Type is a dynamic document type registered by administrators
type Type struct {
	ID          uint64    `json:"id"`
	Code        string    `json:"code" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color" gorm:"default:#007bff"`
	Icon        string    `json:"icon" gorm:"default:bi-file-text"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedBy   uint64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Type) TableName() string { return "document_types" }
