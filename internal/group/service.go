package group

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/user"
	"context"
	defErrors "errors"
	"strings"

	"gorm.io/gorm"
)

type CreateInput struct {
	Code               string
	Name               string
	Description        string
	ResponsibleID      *uint64
	NotifyNewDocuments bool
}

type EditInput struct {
	Name               string
	Description        string
	ResponsibleID      *uint64
	NotifyNewDocuments bool
	Active             bool
}

type Service interface {
	CreateGroup(ctx context.Context, actorID uint64, role user.Role, input CreateInput) (*Group, error)
	GetGroup(ctx context.Context, groupID uint64) (*Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	EditGroup(ctx context.Context, groupID uint64, role user.Role, input EditInput) (*Group, error)
	AddMember(ctx context.Context, groupID, userID uint64, role user.Role) error
	RemoveMember(ctx context.Context, groupID, userID uint64, role user.Role) error
	LinkDocumentType(ctx context.Context, groupID, typeID uint64, role user.Role) error
	UnlinkDocumentType(ctx context.Context, groupID, typeID uint64, role user.Role) error
}

type DefaultService struct {
	repository Repository
}

func NewService(repository Repository) Service {
	return &DefaultService{repository: repository}
}

func (s *DefaultService) CreateGroup(ctx context.Context, actorID uint64, role user.Role, input CreateInput) (*Group, error) {
	if !role.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can manage groups", nil)
	}
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, errors.UnprocessableEntity("Code and name are required", nil)
	}

	g := &Group{
		Code:               strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:               input.Name,
		Description:        input.Description,
		ResponsibleID:      input.ResponsibleID,
		NotifyNewDocuments: input.NotifyNewDocuments,
		Active:             true,
		CreatedByID:        actorID,
	}

	if err := s.repository.Create(ctx, g); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Group code already exists", err)
		}
		return nil, err
	}
	return g, nil
}

func (s *DefaultService) GetGroup(ctx context.Context, groupID uint64) (*Group, error) {
	g, err := s.repository.FindByID(ctx, groupID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Group not found", err)
		}
		return nil, err
	}
	return g, nil
}

func (s *DefaultService) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repository.List(ctx)
}

func (s *DefaultService) EditGroup(ctx context.Context, groupID uint64, role user.Role, input EditInput) (*Group, error) {
	if !role.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can manage groups", nil)
	}

	g, err := s.repository.FindByID(ctx, groupID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Group not found", err)
		}
		return nil, err
	}

	g.Name = input.Name
	g.Description = input.Description
	g.ResponsibleID = input.ResponsibleID
	g.NotifyNewDocuments = input.NotifyNewDocuments
	g.Active = input.Active

	if err := s.repository.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *DefaultService) AddMember(ctx context.Context, groupID, userID uint64, role user.Role) error {
	g, err := s.requireAdminAndGroup(ctx, groupID, role)
	if err != nil {
		return err
	}
	return s.repository.AddMember(ctx, g, userID)
}

func (s *DefaultService) RemoveMember(ctx context.Context, groupID, userID uint64, role user.Role) error {
	g, err := s.requireAdminAndGroup(ctx, groupID, role)
	if err != nil {
		return err
	}
	return s.repository.RemoveMember(ctx, g, userID)
}

func (s *DefaultService) LinkDocumentType(ctx context.Context, groupID, typeID uint64, role user.Role) error {
	g, err := s.requireAdminAndGroup(ctx, groupID, role)
	if err != nil {
		return err
	}
	return s.repository.LinkDocumentType(ctx, g, typeID)
}

func (s *DefaultService) UnlinkDocumentType(ctx context.Context, groupID, typeID uint64, role user.Role) error {
	g, err := s.requireAdminAndGroup(ctx, groupID, role)
	if err != nil {
		return err
	}
	return s.repository.UnlinkDocumentType(ctx, g, typeID)
}

func (s *DefaultService) requireAdminAndGroup(ctx context.Context, groupID uint64, role user.Role) (*Group, error) {
	if !role.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can manage groups", nil)
	}
	g, err := s.repository.FindByID(ctx, groupID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Group not found", err)
		}
		return nil, err
	}
	return g, nil
}
