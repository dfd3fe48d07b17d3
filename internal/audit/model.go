package audit

import (
	"math"
	"time"
)

// Status is the closed state set for an audit
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the audit can no longer change state
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ItemStatus is the verification state of one checklist item
type ItemStatus string

const (
	ItemPending       ItemStatus = "pending"
	ItemConforming    ItemStatus = "conforming"
	ItemNonconforming ItemStatus = "nonconforming"
	ItemNotApplicable ItemStatus = "not_applicable"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemConforming, ItemNonconforming, ItemNotApplicable:
		return true
	}
	return false
}

// FindingType grades what an auditor recorded
type FindingType string

const (
	FindingObservation FindingType = "observation"
	FindingMinor       FindingType = "minor"
	FindingMajor       FindingType = "major"
)

// Audit is a planned or executed quality audit
type Audit struct {
	ID            uint64          `json:"id"`
	Code          string          `json:"code" gorm:"uniqueIndex"`
	Title         string          `json:"title"`
	Type          string          `json:"type"` // internal, external, certification, supplier
	Scope         string          `json:"scope"`
	Objectives    string          `json:"objectives"`
	Status        Status          `json:"status" gorm:"default:planned"`
	LeadAuditorID uint64          `json:"lead_auditor_id"`
	CreatedByID   uint64          `json:"created_by_id"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	StartedAt     *time.Time      `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	ReportDate    *time.Time      `json:"report_date"`
	Summary       string          `json:"summary"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []ChecklistItem `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Findings      []Finding       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// ChecklistItem is one requisite verified during the audit
type ChecklistItem struct {
	ID           uint64     `json:"id"`
	AuditID      uint64     `json:"audit_id"`
	Requisite    string     `json:"requisite"`
	Description  string     `json:"description"`
	Status       ItemStatus `json:"status" gorm:"default:pending"`
	Evidence     string     `json:"evidence"`
	Notes        string     `json:"notes"`
	VerifiedByID *uint64    `json:"verified_by_id"`
	VerifiedAt   *time.Time `json:"verified_at"`
}

// Finding is a recorded audit result that may spawn a non-conformity
type Finding struct {
	ID              uint64      `json:"id"`
	AuditID         uint64      `json:"audit_id"`
	Type            FindingType `json:"type"`
	Description     string      `json:"description"`
	Requirement     string      `json:"requirement"`
	NonConformityID *uint64     `json:"non_conformity_id"`
	RecordedByID    uint64      `json:"recorded_by_id"`
	RecordedAt      time.Time   `json:"recorded_at"`
}

// ConformancePercent is the conforming share over applicable verified items,
// rounded to one decimal. Pending and not-applicable items do not count.
func ConformancePercent(items []ChecklistItem) float64 {
	var conforming, applicable int
	for _, item := range items {
		switch item.Status {
		case ItemConforming:
			conforming++
			applicable++
		case ItemNonconforming:
			applicable++
		}
	}
	if applicable == 0 {
		return 0
	}
	pct := float64(conforming) / float64(applicable) * 100
	return math.Round(pct*10) / 10
}
