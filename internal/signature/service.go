package signature

import (
	"alpha-qms/internal/config"
	"alpha-qms/internal/document"
	"alpha-qms/internal/errors"
	"alpha-qms/internal/user"
	"context"
	"encoding/json"
	defErrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Verification reasons reported by Verify
const (
	ReasonValid              = "valid"
	ReasonAlreadyInvalidated = "signature_invalidated"
	ReasonDocumentMissing    = "document_missing"
	ReasonVersionMissing     = "version_missing"
	ReasonHashMismatch       = "content_hash_mismatch"
)

type SignInput struct {
	Type      SignatureType
	IPAddress string
}

// VerifyResult reports the outcome of re-checking a signature
type VerifyResult struct {
	Signature *DocumentSignature `json:"signature"`
	Valid     bool               `json:"valid"`
	Reason    string             `json:"reason"`
}

type Service interface {
	Sign(ctx context.Context, documentID, actorID uint64, role user.Role, input SignInput) (*DocumentSignature, error)
	Verify(ctx context.Context, signatureID uint64) (*VerifyResult, error)
	ListByDocument(ctx context.Context, documentID uint64) ([]DocumentSignature, error)
	MySignatures(ctx context.Context, actorID uint64) ([]DocumentSignature, error)
	Certificate(ctx context.Context, signatureID uint64) (*Certificate, error)
}

type DefaultService struct {
	repository Repository
}

func NewService(repository Repository) Service {
	return &DefaultService{repository: repository}
}

// Sign binds the actor to the document's current version content. One
// signature per (document, version, signer).
func (s *DefaultService) Sign(ctx context.Context, documentID, actorID uint64, role user.Role, input SignInput) (*DocumentSignature, error) {
	if !role.CanApproveDocuments() {
		return nil, errors.Forbidden("You don't have permission to sign documents", nil)
	}
	if !input.Type.Valid() {
		return nil, errors.UnprocessableEntity("Unknown signature type", nil)
	}

	doc, err := s.repository.FindDocument(ctx, documentID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}
	if doc.Status != document.StatusApproved {
		return nil, errors.UnprocessableEntity("Only approved documents can be signed", nil)
	}

	version, err := s.repository.FindVersionByLabel(ctx, doc.ID, doc.CurrentVersion)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.UnprocessableEntity("Document has no content for its current version", err)
		}
		return nil, err
	}

	now := time.Now().UTC()
	certInfo, err := json.Marshal(map[string]any{
		"signer_id": actorID,
		"algorithm": "sha256",
		"signed_at": now.Format(time.RFC3339),
		"ip":        input.IPAddress,
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	sig := &DocumentSignature{
		DocumentID:      doc.ID,
		DocumentVersion: doc.CurrentVersion,
		SignerID:        actorID,
		Type:            input.Type,
		ContentHash:     ContentHash(version.Content),
		CertificateInfo: string(certInfo),
		IPAddress:       input.IPAddress,
		Valid:           true,
		SignedAt:        now,
	}

	if err := s.repository.Create(ctx, sig); err != nil {
		if defErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("You already signed this version of the document", err)
		}
		return nil, err
	}

	return sig, nil
}

// Verify re-checks a signature against the stored version content. A hash
// mismatch permanently invalidates the record; every other failure reason
// leaves it untouched.
func (s *DefaultService) Verify(ctx context.Context, signatureID uint64) (*VerifyResult, error) {
	sig, err := s.repository.FindByID(ctx, signatureID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Signature not found", err)
		}
		return nil, err
	}

	if !sig.Valid {
		return &VerifyResult{Signature: sig, Valid: false, Reason: ReasonAlreadyInvalidated}, nil
	}

	if _, err := s.repository.FindDocument(ctx, sig.DocumentID); err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return &VerifyResult{Signature: sig, Valid: false, Reason: ReasonDocumentMissing}, nil
		}
		return nil, err
	}

	version, err := s.repository.FindVersionByLabel(ctx, sig.DocumentID, sig.DocumentVersion)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return &VerifyResult{Signature: sig, Valid: false, Reason: ReasonVersionMissing}, nil
		}
		return nil, err
	}

	if ContentHash(version.Content) != sig.ContentHash {
		if err := s.repository.Invalidate(ctx, sig.ID); err != nil {
			return nil, err
		}
		sig.Valid = false
		return &VerifyResult{Signature: sig, Valid: false, Reason: ReasonHashMismatch}, nil
	}

	return &VerifyResult{Signature: sig, Valid: true, Reason: ReasonValid}, nil
}

func (s *DefaultService) ListByDocument(ctx context.Context, documentID uint64) ([]DocumentSignature, error) {
	if _, err := s.repository.FindDocument(ctx, documentID); err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, err
	}
	return s.repository.ListByDocument(ctx, documentID)
}

func (s *DefaultService) MySignatures(ctx context.Context, actorID uint64) ([]DocumentSignature, error) {
	return s.repository.ListBySigner(ctx, actorID)
}

// Certificate builds the exportable verification payload
func (s *DefaultService) Certificate(ctx context.Context, signatureID uint64) (*Certificate, error) {
	sig, err := s.repository.FindByID(ctx, signatureID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Signature not found", err)
		}
		return nil, err
	}

	doc, err := s.repository.FindDocument(ctx, sig.DocumentID)
	if err != nil {
		if defErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Signed document no longer exists", err)
		}
		return nil, err
	}

	return &Certificate{
		SignatureID:     sig.ID,
		DocumentCode:    doc.Code,
		DocumentTitle:   doc.Title,
		DocumentVersion: sig.DocumentVersion,
		SignerID:        sig.SignerID,
		SignedAt:        sig.SignedAt,
		Type:            sig.Type,
		ContentHash:     sig.ContentHash,
		Valid:           sig.Valid,
		CertificateInfo: sig.CertificateInfo,
		VerificationURL: fmt.Sprintf("%s/signatures/%d/verify", config.AppConfig.FrontendAddress, sig.ID),
	}, nil
}
