package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SignatureType distinguishes how the signature was produced
type SignatureType string

const (
	TypeDigital     SignatureType = "digital"
	TypeElectronic  SignatureType = "electronic"
	TypeHandwritten SignatureType = "handwritten"
)

func (t SignatureType) Valid() bool {
	switch t {
	case TypeDigital, TypeElectronic, TypeHandwritten:
		return true
	}
	return false
}

// DocumentSignature is an append-only signature record. Validity is bound
// to the content hash of the signed version: once the hash drifts, the
// record is flagged invalid and never revalidated.
type DocumentSignature struct {
	ID              uint64        `json:"id"`
	DocumentID      uint64        `json:"document_id" gorm:"uniqueIndex:idx_signature_once"`
	DocumentVersion string        `json:"document_version" gorm:"uniqueIndex:idx_signature_once"`
	SignerID        uint64        `json:"signer_id" gorm:"uniqueIndex:idx_signature_once"`
	Type            SignatureType `json:"type"`
	ContentHash     string        `json:"content_hash"`
	CertificateInfo string        `json:"certificate_info"`
	IPAddress       string        `json:"ip_address"`
	Valid           bool          `json:"valid" gorm:"default:true"`
	SignedAt        time.Time     `json:"signed_at"`
}

// ContentHash computes the sha256 digest a signature binds to
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Certificate is the exportable verification payload for a signature
type Certificate struct {
	SignatureID     uint64        `json:"signature_id"`
	DocumentCode    string        `json:"document_code"`
	DocumentTitle   string        `json:"document_title"`
	DocumentVersion string        `json:"document_version"`
	SignerID        uint64        `json:"signer_id"`
	SignedAt        time.Time     `json:"signed_at"`
	Type            SignatureType `json:"type"`
	ContentHash     string        `json:"content_hash"`
	Valid           bool          `json:"valid"`
	CertificateInfo string        `json:"certificate_info"`
	VerificationURL string        `json:"verification_url"`
}
