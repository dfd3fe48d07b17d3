package document

import (
	"alpha-qms/internal/errors"
	"alpha-qms/internal/event"
	"alpha-qms/internal/user"
	"alpha-qms/internal/utils"
	"alpha-qms/redis"
	"context"
	defErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateInput struct {
	Title          string
	Type           string
	DocumentTypeID *uint64
	Department     string
	Keywords       string
	Summary        string
	Content        string
	ValidUntil     *time.Time
}

type EditInput struct {
	Title      string
	Type       string
	Department string
	Keywords   string
	Summary    string
	Content    string
	Changelog  string
	ValidUntil *time.Time
}

type DocumentDetail struct {
	Document       Document `json:"document"`
	CurrentVersion Version  `json:"current_version"`
	Expired        bool     `json:"expired"`
	DaysToExpire   *int     `json:"days_to_expire"`
}

type PaginatedDocuments struct {
	Data []Document     `json:"data"`
	Meta utils.PageMeta `json:"meta"`
}

type Service interface {
	CreateDocument(ctx context.Context, actorID uint64, role user.Role, input CreateInput) (*Document, error)
	GetDocument(ctx context.Context, docID uint64, actorID uint64, ip string) (*DocumentDetail, error)
	ListDocuments(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedDocuments, error)
	EditDocument(ctx context.Context, docID uint64, actorID uint64, role user.Role, input EditInput) (*Document, error)
	SubmitForApproval(ctx context.Context, docID uint64, actorID uint64, role user.Role, approverIDs []uint64, deadline *time.Time) ([]ApprovalFlow, error)
	RestoreVersion(ctx context.Context, docID, versionID, actorID uint64, role user.Role) (*Version, error)
	ListVersions(ctx context.Context, docID uint64) ([]Version, error)
	ConfirmReading(ctx context.Context, docID, actorID uint64, ip string) (bool, error)
	MarkObsolete(ctx context.Context, docID, actorID uint64, role user.Role) (*Document, error)
	ScanExpiring(ctx context.Context, days int) ([]Document, error)
	CreateType(ctx context.Context, actorID uint64, role user.Role, t *Type) error
	ListTypes(ctx context.Context) ([]Type, error)
}

type DefaultService struct {
	repository Repository
	cache      *redis.Cache
	bus        *event.Bus
}

func NewService(repository Repository, cache *redis.Cache, bus *event.Bus) Service {
	return &DefaultService{
		repository: repository,
		cache:      cache,
		bus:        bus,
	}
}

const listVersionKey = "documents:version"

// generateCode builds the unique document code: {TYPE}-{YEAR}-{8-char-random}
func generateCode(docType string) string {
	random := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(docType), time.Now().Year(), random)
}

func (s *DefaultService) CreateDocument(ctx context.Context, actorID uint64, role user.Role, input CreateInput) (*Document, error) {
	if !role.CanCreateDocuments() {
		return nil, errors.Forbidden("You don't have permission to create documents", nil)
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, errors.UnprocessableEntity("Title and content are required", nil)
	}

	doc := &Document{
		Code:           generateCode(input.Type),
		Title:          input.Title,
		Type:           input.Type,
		DocumentTypeID: input.DocumentTypeID,
		Status:         StatusDraft,
		CurrentVersion: "1.0",
		Department:     input.Department,
		Keywords:       input.Keywords,
		Summary:        input.Summary,
		AuthorID:       actorID,
		ValidUntil:     input.ValidUntil,
		Active:         true,
	}
	version := &Version{
		Label:     "1.0",
		Content:   input.Content,
		Changelog: "Initial version",
		CreatedBy: actorID,
	}

	if err := s.repository.Create(ctx, doc, version); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Document code collision, try again", err)
		}
		return nil, err
	}

	s.cache.IncrementVersion(ctx, listVersionKey)
	s.bus.Publish(event.DocumentCreated, event.DocumentCreatedPayload{
		DocumentID:     doc.ID,
		Code:           doc.Code,
		Title:          doc.Title,
		AuthorID:       doc.AuthorID,
		DocumentTypeID: doc.DocumentTypeID,
	})

	return doc, nil
}

func (s *DefaultService) GetDocument(ctx context.Context, docID uint64, actorID uint64, ip string) (*DocumentDetail, error) {
	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}

	version, err := s.repository.CurrentVersionOf(ctx, doc)
	if err != nil {
		return nil, errors.NotFound("Current version not found", err)
	}

	// first view of a version counts as a reading
	_, err = s.repository.RecordReading(ctx, &Reading{
		DocumentID: doc.ID,
		UserID:     actorID,
		Version:    doc.CurrentVersion,
		IPAddress:  ip,
		ReadAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &DocumentDetail{
		Document:       *doc,
		CurrentVersion: *version,
		Expired:        doc.IsExpired(),
		DaysToExpire:   doc.DaysToExpire(),
	}, nil
}

func (s *DefaultService) ListDocuments(ctx context.Context, filter ListFilter, page, pageSize int) (*PaginatedDocuments, error) {
	v := s.cache.GetVersion(ctx, listVersionKey)
	cacheKey := fmt.Sprintf("docs:v:%d:s:%s:t:%s:st:%s:p:%d:ps:%d",
		v, filter.Search, filter.Type, filter.Status, page, pageSize)

	var result PaginatedDocuments
	found, _ := s.cache.Get(ctx, cacheKey, &result)
	if found {
		return &result, nil
	}

	documents, total, err := s.repository.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	result = PaginatedDocuments{Data: documents, Meta: utils.NewPageMeta(total, page, pageSize)}
	go s.cache.Set(context.Background(), cacheKey, result, 24*time.Hour)

	return &result, nil
}

func (s *DefaultService) EditDocument(ctx context.Context, docID uint64, actorID uint64, role user.Role, input EditInput) (*Document, error) {
	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}

	if !role.CanCreateDocuments() && doc.AuthorID != actorID {
		return nil, errors.Forbidden("You don't have permission to edit this document", nil)
	}
	if !doc.Status.Editable() {
		return nil, errors.UnprocessableEntity(
			"Approved documents cannot be edited directly. Restore a version to create a new one.", nil)
	}

	version, err := s.repository.CurrentVersionOf(ctx, doc)
	if err != nil {
		return nil, errors.NotFound("Current version not found", err)
	}

	doc.Title = input.Title
	doc.Type = input.Type
	doc.Department = input.Department
	doc.Keywords = input.Keywords
	doc.Summary = input.Summary
	doc.ValidUntil = input.ValidUntil
	now := time.Now().UTC()
	doc.LastRevisionDate = &now

	version.Content = input.Content
	if input.Changelog != "" {
		version.Changelog = input.Changelog
	}

	if err := s.repository.UpdateWithVersion(ctx, doc, version); err != nil {
		return nil, err
	}

	s.cache.IncrementVersion(ctx, listVersionKey)
	return doc, nil
}

func (s *DefaultService) SubmitForApproval(ctx context.Context, docID uint64, actorID uint64, role user.Role, approverIDs []uint64, deadline *time.Time) ([]ApprovalFlow, error) {
	if len(approverIDs) == 0 {
		return nil, errors.UnprocessableEntity("At least one approver is required", nil)
	}

	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}

	if !role.CanCreateDocuments() && doc.AuthorID != actorID {
		return nil, errors.Forbidden("You don't have permission to submit this document", nil)
	}
	if !doc.Status.CanTransition(StatusInReview) {
		return nil, errors.UnprocessableEntity(
			fmt.Sprintf("Document in status %q cannot be submitted for approval", doc.Status), nil)
	}

	now := time.Now().UTC()
	flows := make([]ApprovalFlow, 0, len(approverIDs))
	seen := make(map[uint64]bool, len(approverIDs))
	for i, approverID := range approverIDs {
		if seen[approverID] {
			return nil, errors.UnprocessableEntity("Duplicate approver in submission", nil)
		}
		seen[approverID] = true
		flows = append(flows, ApprovalFlow{
			ApproverID: approverID,
			Stage:      StageApproval,
			Status:     ApprovalPending,
			OrderIndex: i + 1,
			Deadline:   deadline,
			AssignedAt: now,
		})
	}

	created, err := s.repository.SubmitForApproval(ctx, docID, flows)
	if err != nil {
		if defErrors.Is(err, ErrNotSubmittable) {
			return nil, errors.Conflict("Document was already submitted", err)
		}
		return nil, err
	}

	s.cache.IncrementVersion(ctx, listVersionKey)
	for _, flow := range created {
		s.bus.Publish(event.ApprovalPending, event.ApprovalPendingPayload{
			FlowID:        flow.ID,
			DocumentID:    docID,
			DocumentTitle: doc.Title,
			ApproverID:    flow.ApproverID,
			Deadline:      flow.Deadline,
		})
	}

	return created, nil
}

func (s *DefaultService) RestoreVersion(ctx context.Context, docID, versionID, actorID uint64, role user.Role) (*Version, error) {
	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}

	if !role.CanCreateDocuments() && doc.AuthorID != actorID {
		return nil, errors.Forbidden("You don't have permission to restore versions", nil)
	}

	version, err := s.repository.FindVersion(ctx, versionID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Version not found", err)
		}
		return nil, err
	}
	if version.DocumentID != doc.ID {
		return nil, errors.NotFound("Version does not belong to this document", nil)
	}

	nextLabel, err := NextVersionLabel(doc.CurrentVersion)
	if err != nil {
		return nil, errors.UnprocessableEntity("Current version label is malformed", err)
	}

	newVersion := &Version{
		Label:     nextLabel,
		Content:   version.Content,
		Changelog: fmt.Sprintf("Restored version %s", version.Label),
		CreatedBy: actorID,
		CreatedAt: time.Now().UTC(),
	}

	now := time.Now().UTC()
	doc.CurrentVersion = nextLabel
	doc.LastRevisionDate = &now
	// content changed, an approved document goes back to draft
	if doc.Status == StatusApproved {
		doc.Status = StatusDraft
	}

	if err := s.repository.RestoreVersion(ctx, doc, newVersion); err != nil {
		return nil, err
	}

	s.cache.IncrementVersion(ctx, listVersionKey)
	return newVersion, nil
}

func (s *DefaultService) ListVersions(ctx context.Context, docID uint64) ([]Version, error) {
	if _, err := s.repository.FindByID(ctx, docID); err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}
	return s.repository.ListVersions(ctx, docID)
}

func (s *DefaultService) ConfirmReading(ctx context.Context, docID, actorID uint64, ip string) (bool, error) {
	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.NotFound("Document not found", err)
		}
		return false, err
	}

	return s.repository.RecordReading(ctx, &Reading{
		DocumentID: doc.ID,
		UserID:     actorID,
		Version:    doc.CurrentVersion,
		IPAddress:  ip,
		ReadAt:     time.Now().UTC(),
	})
}

func (s *DefaultService) MarkObsolete(ctx context.Context, docID, actorID uint64, role user.Role) (*Document, error) {
	if !role.CanAdmin() {
		return nil, errors.Forbidden("Only administrators can mark documents obsolete", nil)
	}

	doc, err := s.repository.FindByID(ctx, docID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}
	if !doc.Status.CanTransition(StatusObsolete) {
		return nil, errors.UnprocessableEntity("Document is already obsolete", nil)
	}

	doc.Status = StatusObsolete
	if err := s.repository.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.cache.IncrementVersion(ctx, listVersionKey)
	return doc, nil
}

// ScanExpiring lists approved documents expiring within the window and
// raises an expiring-soon event per document
func (s *DefaultService) ScanExpiring(ctx context.Context, days int) ([]Document, error) {
	documents, err := s.repository.ExpiringWithin(ctx, days)
	if err != nil {
		return nil, err
	}

	for _, doc := range documents {
		daysLeft := 0
		if d := doc.DaysToExpire(); d != nil {
			daysLeft = *d
		}
		s.bus.Publish(event.DocumentExpiringSoon, event.DocumentExpiringPayload{
			DocumentID: doc.ID,
			Code:       doc.Code,
			Title:      doc.Title,
			AuthorID:   doc.AuthorID,
			DaysLeft:   daysLeft,
		})
	}

	return documents, nil
}

func (s *DefaultService) CreateType(ctx context.Context, actorID uint64, role user.Role, t *Type) error {
	if !role.CanAdmin() {
		return errors.Forbidden("Only administrators can manage document types", nil)
	}
	t.CreatedBy = actorID
	t.Active = true

	if err := s.repository.CreateType(ctx, t); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("Document type code already exists", err)
		}
		return err
	}
	return nil
}

func (s *DefaultService) ListTypes(ctx context.Context) ([]Type, error) {
	return s.repository.ListTypes(ctx)
}
