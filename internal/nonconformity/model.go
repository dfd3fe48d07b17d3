package nonconformity

import (
	"math"
	"time"
)

// Status is the closed state set for a non-conformity
type Status string

const (
	StatusOpen        Status = "open"
	StatusAnalyzing   Status = "analyzing"
	StatusInTreatment Status = "in_treatment"
	StatusClosed      Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAnalyzing, StatusInTreatment, StatusClosed:
		return true
	}
	return false
}

// Severity grading for a non-conformity
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ActionStatus is the closed state set for a corrective/preventive action
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
	ActionCancelled  ActionStatus = "cancelled"
)

// Terminal reports whether the action no longer counts as outstanding
func (s ActionStatus) Terminal() bool {
	return s == ActionCompleted || s == ActionCancelled
}

// ActionCategory distinguishes corrective from preventive actions
type ActionCategory string

const (
	CategoryCorrective ActionCategory = "corrective"
	CategoryPreventive ActionCategory = "preventive"
)

// NonConformity is a logged deviation requiring tracked corrective or
// preventive action.
type NonConformity struct {
	ID            uint64             `json:"id"`
	Code          string             `json:"code" gorm:"uniqueIndex"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Category      string             `json:"category"` // internal, external, audit, customer
	Severity      Severity           `json:"severity"`
	Status        Status             `json:"status" gorm:"default:open"`
	Origin        string             `json:"origin"`
	Department    string             `json:"department"`
	OpenedByID    uint64             `json:"opened_by_id"`
	ResponsibleID *uint64            `json:"responsible_id"`
	DocumentID    *uint64            `json:"document_id"`
	Deadline      *time.Time         `json:"deadline"`
	OpenedAt      time.Time          `json:"opened_at"`
	ClosedAt      *time.Time         `json:"closed_at"`
	Actions       []CorrectiveAction `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// IsOverdue reports whether a non-closed NC passed its deadline
func (n *NonConformity) IsOverdue() bool {
	if n.Deadline == nil || n.Status == StatusClosed {
		return false
	}
	return time.Now().UTC().After(*n.Deadline)
}

// DaysToDeadline returns signed whole days until the deadline, nil when
// closed or no deadline is set
func (n *NonConformity) DaysToDeadline() *int {
	if n.Deadline == nil || n.Status == StatusClosed {
		return nil
	}
	days := int(math.Floor(time.Until(*n.Deadline).Hours() / 24))
	return &days
}

// CorrectiveAction is the remediation record tied to a non-conformity
type CorrectiveAction struct {
	ID              uint64         `json:"id"`
	NonConformityID uint64         `json:"non_conformity_id"`
	Category        ActionCategory `json:"category"`
	Description     string         `json:"description"`
	Justification   string         `json:"justification"`
	Status          ActionStatus   `json:"status" gorm:"default:pending"`
	ResponsibleID   uint64         `json:"responsible_id"`
	CreatedByID     uint64         `json:"created_by_id"`
	Deadline        *time.Time     `json:"deadline"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
}

// IsOverdue reports whether a non-terminal action passed its deadline
func (a *CorrectiveAction) IsOverdue() bool {
	if a.Deadline == nil || a.Status.Terminal() {
		return false
	}
	return time.Now().UTC().After(*a.Deadline)
}
