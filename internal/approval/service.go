package approval

import (
	"alpha-qms/internal/document"
	"alpha-qms/internal/errors"
	"alpha-qms/internal/user"
	"alpha-qms/internal/utils"
	"context"
	defErrors "errors"
	"strings"

	"gorm.io/gorm"
)

type PaginatedFlows struct {
	Data []document.ApprovalFlow `json:"data"`
	Meta utils.PageMeta          `json:"meta"`
}

type Service interface {
	Approve(ctx context.Context, flowID, actorID uint64, comments string) (*document.Document, error)
	Reject(ctx context.Context, flowID, actorID uint64, comments string) (*document.Document, error)
	PendingForApprover(ctx context.Context, actorID uint64, role user.Role, page, pageSize int) (*PaginatedFlows, error)
	FlowsForDocument(ctx context.Context, docID uint64) ([]document.ApprovalFlow, error)
}

type DefaultService struct {
	repository Repository
}

func NewService(repository Repository) Service {
	return &DefaultService{repository: repository}
}

// loadPendingFor fetches the flow and runs the checks shared by approve
// and reject: the actor must be the assigned approver and the flow must
// still be pending.
func (s *DefaultService) loadPendingFor(ctx context.Context, flowID, actorID uint64) (*document.ApprovalFlow, error) {
	flow, err := s.repository.FindFlow(ctx, flowID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Approval flow not found", err)
		}
		return nil, err
	}

	if flow.ApproverID != actorID {
		return nil, errors.Forbidden("You are not the assigned approver for this flow", nil)
	}
	if flow.Status != document.ApprovalPending {
		return nil, errors.AlreadyProcessed("This approval has already been processed")
	}

	return flow, nil
}

func (s *DefaultService) Approve(ctx context.Context, flowID, actorID uint64, comments string) (*document.Document, error) {
	flow, err := s.loadPendingFor(ctx, flowID, actorID)
	if err != nil {
		return nil, err
	}

	doc, err := s.repository.Approve(ctx, flow.ID, flow.DocumentID, comments)
	if err != nil {
		if defErrors.Is(err, ErrAlreadyResolved) {
			return nil, errors.AlreadyProcessed("This approval has already been processed")
		}
		return nil, err
	}

	return doc, nil
}

func (s *DefaultService) Reject(ctx context.Context, flowID, actorID uint64, comments string) (*document.Document, error) {
	// rejection must always carry a reason, approve comments are optional
	if strings.TrimSpace(comments) == "" {
		return nil, errors.UnprocessableEntity("A rejection reason is required", nil)
	}

	flow, err := s.loadPendingFor(ctx, flowID, actorID)
	if err != nil {
		return nil, err
	}

	doc, err := s.repository.Reject(ctx, flow.ID, flow.DocumentID, comments)
	if err != nil {
		if defErrors.Is(err, ErrAlreadyResolved) {
			return nil, errors.AlreadyProcessed("This approval has already been processed")
		}
		return nil, err
	}

	return doc, nil
}

func (s *DefaultService) PendingForApprover(ctx context.Context, actorID uint64, role user.Role, page, pageSize int) (*PaginatedFlows, error) {
	if !role.CanApproveDocuments() {
		return nil, errors.Forbidden("You don't have permission to view approvals", nil)
	}

	flows, total, err := s.repository.ListPendingByApprover(ctx, actorID, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &PaginatedFlows{
		Data: flows,
		Meta: utils.NewPageMeta(total, page, pageSize),
	}, nil
}

func (s *DefaultService) FlowsForDocument(ctx context.Context, docID uint64) ([]document.ApprovalFlow, error) {
	return s.repository.ListByDocument(ctx, docID)
}
