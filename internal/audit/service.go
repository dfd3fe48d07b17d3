package audit

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/user"
	"alpha-qms/internal/utils"
	"context"
	defErrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ScheduleInput struct {
	Title         string
	Type          string
	Scope         string
	Objectives    string
	LeadAuditorID uint64
	ScheduledDate *time.Time
}

type ItemInput struct {
	Requisite   string
	Description string
}

type VerifyItemInput struct {
	Status   ItemStatus
	Evidence string
	Notes    string
}

type FindingInput struct {
	Type            FindingType
	Description     string
	Requirement     string
	NonConformityID *uint64
}

// AuditDetail bundles an audit with its derived conformance figure
type AuditDetail struct {
	Audit       *Audit          `json:"audit"`
	Items       []ChecklistItem `json:"items"`
	Findings    []Finding       `json:"findings"`
	Conformance float64         `json:"conformance_percent"`
}

type PaginatedAudits struct {
	Data []Audit        `json:"data"`
	Meta utils.PageMeta `json:"meta"`
}

type Service interface {
	Schedule(ctx context.Context, actorID uint64, role user.Role, input ScheduleInput) (*Audit, error)
	Get(ctx context.Context, id uint64) (*AuditDetail, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedAudits, error)
	ChangeStatus(ctx context.Context, id, actorID uint64, role user.Role, status Status, summary string) (*Audit, error)
	AddItem(ctx context.Context, auditID, actorID uint64, role user.Role, input ItemInput) (*ChecklistItem, error)
	VerifyItem(ctx context.Context, itemID, actorID uint64, role user.Role, input VerifyItemInput) (*ChecklistItem, error)
	RecordFinding(ctx context.Context, auditID, actorID uint64, role user.Role, input FindingInput) (*Finding, error)
}

type DefaultService struct {
	repository Repository
}

func NewService(repository Repository) Service {
	return &DefaultService{repository: repository}
}

func (s *DefaultService) Schedule(ctx context.Context, actorID uint64, role user.Role, input ScheduleInput) (*Audit, error) {
	if !role.CanAudit() {
		return nil, errors.Forbidden("You don't have permission to schedule audits", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.UnprocessableEntity("Title is required", nil)
	}

	year := time.Now().Year()
	seq, err := s.repository.NextSequence(ctx, year)
	if err != nil {
		return nil, err
	}

	a := &Audit{
		Code:          fmt.Sprintf("AUD-%d-%04d", year, seq),
		Title:         input.Title,
		Type:          input.Type,
		Scope:         input.Scope,
		Objectives:    input.Objectives,
		Status:        StatusPlanned,
		LeadAuditorID: input.LeadAuditorID,
		CreatedByID:   actorID,
		ScheduledDate: input.ScheduledDate,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repository.Create(ctx, a); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Audit code collision, try again", err)
		}
		return nil, err
	}

	return a, nil
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*AuditDetail, error) {
	a, err := s.findAudit(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.repository.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	findings, err := s.repository.ListFindings(ctx, id)
	if err != nil {
		return nil, err
	}

	return &AuditDetail{
		Audit:       a,
		Items:       items,
		Findings:    findings,
		Conformance: ConformancePercent(items),
	}, nil
}

func (s *DefaultService) List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedAudits, error) {
	audits, total, err := s.repository.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaginatedAudits{Data: audits, Meta: utils.NewPageMeta(total, page, pageSize)}, nil
}

// ChangeStatus walks the audit through its lifecycle. Completing stamps
// both completion and report dates.
func (s *DefaultService) ChangeStatus(ctx context.Context, id, actorID uint64, role user.Role, status Status, summary string) (*Audit, error) {
	a, err := s.findAudit(ctx, id)
	if err != nil {
		return nil, err
	}

	if !role.CanAdmin() && a.LeadAuditorID != actorID {
		return nil, errors.Forbidden("Only the lead auditor can update this audit", nil)
	}
	if !status.Valid() {
		return nil, errors.UnprocessableEntity("Unknown audit status", nil)
	}
	if a.Status.Terminal() {
		return nil, errors.AlreadyProcessed("This audit is already closed")
	}

	now := time.Now().UTC()
	switch status {
	case StatusInProgress:
		if a.Status != StatusPlanned {
			return nil, errors.UnprocessableEntity("Only a planned audit can be started", nil)
		}
		a.StartedAt = &now
	case StatusCompleted:
		if a.Status != StatusInProgress {
			return nil, errors.UnprocessableEntity("Only an audit in progress can be completed", nil)
		}
		a.CompletedAt = &now
		a.ReportDate = &now
	case StatusCancelled:
		// planned or in_progress audits may be cancelled
	case StatusPlanned:
		return nil, errors.UnprocessableEntity("An audit cannot return to planned", nil)
	}

	a.Status = status
	if summary != "" {
		a.Summary = summary
	}

	if err := s.repository.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *DefaultService) AddItem(ctx context.Context, auditID, actorID uint64, role user.Role, input ItemInput) (*ChecklistItem, error) {
	a, err := s.findAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if !role.CanAdmin() && a.LeadAuditorID != actorID {
		return nil, errors.Forbidden("Only the lead auditor can edit the checklist", nil)
	}
	if a.Status.Terminal() {
		return nil, errors.UnprocessableEntity("Cannot edit the checklist of a closed audit", nil)
	}
	if strings.TrimSpace(input.Requisite) == "" {
		return nil, errors.UnprocessableEntity("Requisite is required", nil)
	}

	item := &ChecklistItem{
		AuditID:     a.ID,
		Requisite:   input.Requisite,
		Description: input.Description,
		Status:      ItemPending,
	}
	if err := s.repository.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// VerifyItem records the auditor's verdict on one checklist item
func (s *DefaultService) VerifyItem(ctx context.Context, itemID, actorID uint64, role user.Role, input VerifyItemInput) (*ChecklistItem, error) {
	item, err := s.repository.FindItem(ctx, itemID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Checklist item not found", err)
		}
		return nil, err
	}

	a, err := s.findAudit(ctx, item.AuditID)
	if err != nil {
		return nil, err
	}
	if !role.CanAdmin() && a.LeadAuditorID != actorID {
		return nil, errors.Forbidden("Only the lead auditor can verify items", nil)
	}
	if a.Status != StatusInProgress {
		return nil, errors.UnprocessableEntity("Items can only be verified while the audit is in progress", nil)
	}
	if !input.Status.Valid() || input.Status == ItemPending {
		return nil, errors.UnprocessableEntity("Verdict must be conforming, nonconforming or not_applicable", nil)
	}

	now := time.Now().UTC()
	item.Status = input.Status
	item.Evidence = input.Evidence
	item.Notes = input.Notes
	item.VerifiedByID = &actorID
	item.VerifiedAt = &now

	if err := s.repository.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DefaultService) RecordFinding(ctx context.Context, auditID, actorID uint64, role user.Role, input FindingInput) (*Finding, error) {
	a, err := s.findAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if !role.CanAudit() {
		return nil, errors.Forbidden("You don't have permission to record findings", nil)
	}
	if a.Status != StatusInProgress {
		return nil, errors.UnprocessableEntity("Findings can only be recorded while the audit is in progress", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, errors.UnprocessableEntity("Description is required", nil)
	}

	finding := &Finding{
		AuditID:         a.ID,
		Type:            input.Type,
		Description:     input.Description,
		Requirement:     input.Requirement,
		NonConformityID: input.NonConformityID,
		RecordedByID:    actorID,
		RecordedAt:      time.Now().UTC(),
	}
	if err := s.repository.CreateFinding(ctx, finding); err != nil {
		return nil, err
	}
	return finding, nil
}

func (s *DefaultService) findAudit(ctx context.Context, id uint64) (*Audit, error) {
	a, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Audit not found", err)
		}
		return nil, err
	}
	return a, nil
}
