package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentType enumerates the accepted categories of claim evidence.
type DocumentType string

const (
	DocumentTypeIdentityProof    DocumentType = "identity_proof"
	DocumentTypeAddressProof     DocumentType = "address_proof"
	DocumentTypeLandDocument     DocumentType = "land_document"
	DocumentTypeSurveySettlement DocumentType = "survey_settlement"
	DocumentTypeForestClearance  DocumentType = "forest_clearance"
	DocumentTypePhotograph       DocumentType = "photograph"
	DocumentTypeOther            DocumentType = "other"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeIdentityProof, DocumentTypeAddressProof, DocumentTypeLandDocument,
		DocumentTypeSurveySettlement, DocumentTypeForestClearance, DocumentTypePhotograph,
		DocumentTypeOther:
		return true
	}
	return false
}

// DocumentStatus captures the OCR lifecycle of an uploaded file.
// uploaded -> processing -> ocr_completed -> {verified | rejected}
type DocumentStatus string

const (
	DocumentStatusUploaded     DocumentStatus = "uploaded"
	DocumentStatusProcessing   DocumentStatus = "processing"
	DocumentStatusOCRCompleted DocumentStatus = "ocr_completed"
	DocumentStatusVerified     DocumentStatus = "verified"
	DocumentStatusRejected     DocumentStatus = "rejected"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusProcessing, DocumentStatusOCRCompleted,
		DocumentStatusVerified, DocumentStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status closes the OCR lifecycle.
// Terminal states never block creation of a new version.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusVerified || s == DocumentStatusRejected
}

// OCRMetadata stores free-form OCR engine output persisted as JSONB.
type OCRMetadata map[string]interface{}

// Value marshals metadata to JSON for persistence.
func (m OCRMetadata) Value() (driver.Value, error) {
	if m == nil {
		m = OCRMetadata{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ocr metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *OCRMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = OCRMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for OCRMetadata", value)
	}
	if len(data) == 0 {
		*m = OCRMetadata{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal ocr metadata: %w", err)
	}
	return nil
}

// Document is one stored file version belonging to a claim evidence family.
// Version 1 is the family root; later versions point back at it through
// ParentDocumentID.
type Document struct {
	ID               string         `db:"id" json:"id"`
	Filename         string         `db:"filename" json:"filename"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	FilePath         string         `db:"file_path" json:"file_path"`
	FileSize         int64          `db:"file_size" json:"file_size"`
	MimeType         string         `db:"mime_type" json:"mime_type"`
	DocumentType     DocumentType   `db:"document_type" json:"document_type"`
	Status           DocumentStatus `db:"status" json:"status"`
	Version          int            `db:"version" json:"version"`
	ParentDocumentID *string        `db:"parent_document_id" json:"parent_document_id,omitempty"`
	ClaimID          *string        `db:"claim_id" json:"claim_id,omitempty"`
	OCRText          *string        `db:"ocr_text" json:"ocr_text,omitempty"`
	OCRConfidence    float64        `db:"ocr_confidence" json:"ocr_confidence"`
	OCRMetadata      OCRMetadata    `db:"ocr_metadata" json:"ocr_metadata,omitempty"`
	UploadedBy       string         `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// FamilyRootID returns the id of the family's version-1 document.
func (d *Document) FamilyRootID() string {
	if d.ParentDocumentID != nil && *d.ParentDocumentID != "" {
		return *d.ParentDocumentID
	}
	return d.ID
}

// DocumentFilter encapsulates allowed search parameters for listing documents.
type DocumentFilter struct {
	ClaimID      string
	DocumentType DocumentType
	Status       DocumentStatus
	UploadedBy   string
	Limit        int
}
