package nonconformity

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/event"
	"alpha-qms/internal/user"
	"alpha-qms/internal/utils"
	"context"
	defErrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type OpenInput struct {
	Title         string
	Description   string
	Category      string
	Severity      Severity
	Origin        string
	Department    string
	ResponsibleID *uint64
	DocumentID    *uint64
	Deadline      *time.Time
}

type EditInput struct {
	Title         string
	Description   string
	Category      string
	Severity      Severity
	Status        Status
	Origin        string
	Department    string
	ResponsibleID *uint64
	Deadline      *time.Time
}

type ActionInput struct {
	Category      ActionCategory
	Description   string
	Justification string
	ResponsibleID uint64
	Deadline      *time.Time
}

type PaginatedNCs struct {
	Data []NonConformity `json:"data"`
	Meta utils.PageMeta  `json:"meta"`
}

type Service interface {
	Open(ctx context.Context, actorID uint64, role user.Role, input OpenInput) (*NonConformity, error)
	Get(ctx context.Context, id uint64) (*NonConformity, []CorrectiveAction, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedNCs, error)
	Edit(ctx context.Context, id, actorID uint64, role user.Role, input EditInput) (*NonConformity, error)
	FileAction(ctx context.Context, ncID, actorID uint64, role user.Role, input ActionInput) (*CorrectiveAction, error)
	UpdateActionStatus(ctx context.Context, actionID, actorID uint64, role user.Role, status ActionStatus) (*CorrectiveAction, error)
	GetStats(ctx context.Context, role user.Role) (*Stats, error)
}

type DefaultService struct {
	repository Repository
	bus        *event.Bus
}

func NewService(repository Repository, bus *event.Bus) Service {
	return &DefaultService{repository: repository, bus: bus}
}

func (s *DefaultService) Open(ctx context.Context, actorID uint64, role user.Role, input OpenInput) (*NonConformity, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to open non-conformities", nil)
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, errors.UnprocessableEntity("Title and description are required", nil)
	}

	year := time.Now().Year()
	seq, err := s.repository.NextSequence(ctx, year)
	if err != nil {
		return nil, err
	}

	nc := &NonConformity{
		Code:          fmt.Sprintf("NC-%d-%04d", year, seq),
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Severity:      input.Severity,
		Status:        StatusOpen,
		Origin:        input.Origin,
		Department:    input.Department,
		OpenedByID:    actorID,
		ResponsibleID: input.ResponsibleID,
		DocumentID:    input.DocumentID,
		Deadline:      input.Deadline,
		OpenedAt:      time.Now().UTC(),
	}

	if err := s.repository.Create(ctx, nc); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Non-conformity code collision, try again", err)
		}
		return nil, err
	}

	s.bus.Publish(event.NonConformityOpened, event.NonConformityOpenedPayload{
		NonConformityID: nc.ID,
		Code:            nc.Code,
		Title:           nc.Title,
		Severity:        string(nc.Severity),
		OpenedByID:      nc.OpenedByID,
		ResponsibleID:   nc.ResponsibleID,
	})

	return nc, nil
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*NonConformity, []CorrectiveAction, error) {
	nc, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NotFound("Non-conformity not found", err)
		}
		return nil, nil, err
	}

	actions, err := s.repository.ListActions(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return nc, actions, nil
}

func (s *DefaultService) List(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedNCs, error) {
	ncs, total, err := s.repository.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaginatedNCs{Data: ncs, Meta: utils.NewPageMeta(total, page, pageSize)}, nil
}

func (s *DefaultService) Edit(ctx context.Context, id, actorID uint64, role user.Role, input EditInput) (*NonConformity, error) {
	nc, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Non-conformity not found", err)
		}
		return nil, err
	}

	if !role.CanAdmin() && nc.OpenedByID != actorID {
		return nil, errors.Forbidden("You don't have permission to edit this non-conformity", nil)
	}
	if !input.Status.Valid() {
		return nil, errors.UnprocessableEntity("Unknown status", nil)
	}

	// closing requires every child action resolved
	if input.Status == StatusClosed && nc.Status != StatusClosed {
		outstanding, err := s.repository.CountOutstandingActions(ctx, nc.ID)
		if err != nil {
			return nil, err
		}
		if outstanding > 0 {
			return nil, errors.UnprocessableEntity(
				fmt.Sprintf("Cannot close: %d corrective actions still outstanding", outstanding), nil)
		}
	}

	nc.Title = input.Title
	nc.Description = input.Description
	nc.Category = input.Category
	nc.Severity = input.Severity
	nc.Origin = input.Origin
	nc.Department = input.Department
	nc.ResponsibleID = input.ResponsibleID
	nc.Deadline = input.Deadline
	nc.Status = input.Status

	// closure timestamp is stamped once on close, cleared on reopen
	if nc.Status == StatusClosed && nc.ClosedAt == nil {
		now := time.Now().UTC()
		nc.ClosedAt = &now
	} else if nc.Status != StatusClosed {
		nc.ClosedAt = nil
	}

	if err := s.repository.Update(ctx, nc); err != nil {
		return nil, err
	}

	return nc, nil
}

func (s *DefaultService) FileAction(ctx context.Context, ncID, actorID uint64, role user.Role, input ActionInput) (*CorrectiveAction, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to file actions", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, errors.UnprocessableEntity("Description is required", nil)
	}
	if input.Category != CategoryCorrective && input.Category != CategoryPreventive {
		return nil, errors.UnprocessableEntity("Category must be corrective or preventive", nil)
	}

	nc, err := s.repository.FindByID(ctx, ncID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Non-conformity not found", err)
		}
		return nil, err
	}
	if nc.Status == StatusClosed {
		return nil, errors.UnprocessableEntity("Cannot file actions on a closed non-conformity", nil)
	}

	action := &CorrectiveAction{
		Category:      input.Category,
		Description:   input.Description,
		Justification: input.Justification,
		Status:        ActionPending,
		ResponsibleID: input.ResponsibleID,
		CreatedByID:   actorID,
		Deadline:      input.Deadline,
		CreatedAt:     time.Now().UTC(),
	}

	// first action on an open NC advances it to in_treatment
	if err := s.repository.CreateAction(ctx, nc, action); err != nil {
		return nil, err
	}

	s.bus.Publish(event.CorrectiveActionAssigned, event.CorrectiveActionAssignedPayload{
		ActionID:        action.ID,
		NonConformityID: nc.ID,
		Code:            nc.Code,
		Description:     action.Description,
		ResponsibleID:   action.ResponsibleID,
	})

	return action, nil
}

func (s *DefaultService) UpdateActionStatus(ctx context.Context, actionID, actorID uint64, role user.Role, status ActionStatus) (*CorrectiveAction, error) {
	action, err := s.repository.FindAction(ctx, actionID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Action not found", err)
		}
		return nil, err
	}

	if !role.CanAdmin() && action.ResponsibleID != actorID {
		return nil, errors.Forbidden("You don't have permission to update this action", nil)
	}
	if action.Status.Terminal() {
		return nil, errors.AlreadyProcessed("This action is already resolved")
	}

	switch status {
	case ActionPending, ActionInProgress, ActionCompleted, ActionCancelled:
	default:
		return nil, errors.UnprocessableEntity("Unknown action status", nil)
	}

	action.Status = status
	if status == ActionCompleted {
		now := time.Now().UTC()
		action.CompletedAt = &now
	}

	if err := s.repository.UpdateAction(ctx, action); err != nil {
		return nil, err
	}

	return action, nil
}

func (s *DefaultService) GetStats(ctx context.Context, role user.Role) (*Stats, error) {
	if !role.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can view reports", nil)
	}
	return s.repository.GetStats(ctx)
}
