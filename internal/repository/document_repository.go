package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fra-connect/atlas-api/internal/models"
)

const (
	documentListMaxLimit     = 1000
	documentListDefaultLimit = 100
)

const documentColumns = `id, filename, original_filename, file_path, file_size, mime_type,
        document_type, status, version, parent_document_id, claim_id,
        ocr_text, ocr_confidence, ocr_metadata, uploaded_by, created_at, updated_at`

// DocumentRepository manages persistence for document records.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a fresh version-1 document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.OCRMetadata == nil {
		doc.OCRMetadata = models.OCRMetadata{}
	}
	const query = `INSERT INTO documents (id, filename, original_filename, file_path, file_size, mime_type,
        document_type, status, version, parent_document_id, claim_id,
        ocr_text, ocr_confidence, ocr_metadata, uploaded_by, created_at, updated_at)
        VALUES (:id, :filename, :original_filename, :file_path, :file_size, :mime_type,
        :document_type, :status, :version, :parent_document_id, :claim_id,
        :ocr_text, :ocr_confidence, :ocr_metadata, :uploaded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// CreateVersion inserts a new version for the family rooted at familyID.
// The version number is computed inside the INSERT from the current family
// maximum. Under READ COMMITTED two concurrent inserts can still compute the
// same value; the unique index on (COALESCE(parent_document_id, id), version)
// in scripts/schema.sql turns that race into a constraint error.
func (r *DocumentRepository) CreateVersion(ctx context.Context, doc *models.Document, familyID string) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.OCRMetadata == nil {
		doc.OCRMetadata = models.OCRMetadata{}
	}
	const query = `INSERT INTO documents (id, filename, original_filename, file_path, file_size, mime_type,
        document_type, status, version, parent_document_id, claim_id,
        ocr_text, ocr_confidence, ocr_metadata, uploaded_by, created_at, updated_at)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8, COALESCE(MAX(version), 0) + 1, $9, $10, NULL, 0, $11, $12, $13, $14
        FROM documents WHERE id = $9 OR parent_document_id = $9
        RETURNING version`
	meta, err := doc.OCRMetadata.Value()
	if err != nil {
		return fmt.Errorf("create document version: %w", err)
	}
	if err := r.db.GetContext(ctx, &doc.Version, query,
		doc.ID, doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileSize, doc.MimeType,
		doc.DocumentType, doc.Status, familyID, doc.ClaimID,
		meta, doc.UploadedBy, doc.CreatedAt, doc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create document version: %w", err)
	}
	doc.ParentDocumentID = &familyID
	return nil
}

// FindByID fetches a document by id.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE id = $1", documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents matching the provided filters, newest first.
// The limit is clamped server-side.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClaimID != "" {
		conditions = append(conditions, fmt.Sprintf("claim_id = $%d", len(args)+1))
		args = append(args, filter.ClaimID)
	}
	if filter.DocumentType != "" {
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)+1))
		args = append(args, filter.DocumentType)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.UploadedBy != "" {
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)+1))
		args = append(args, filter.UploadedBy)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = documentListDefaultLimit
	}
	if limit > documentListMaxLimit {
		limit = documentListMaxLimit
	}

	query := fmt.Sprintf("SELECT %s FROM documents WHERE %s ORDER BY created_at DESC LIMIT %d",
		documentColumns, strings.Join(conditions, " AND "), limit)

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// ListFamily returns every document in the family containing familyRootID,
// root included, ascending by version.
func (r *DocumentRepository) ListFamily(ctx context.Context, familyRootID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents
        WHERE id = $1 OR parent_document_id = $1
        ORDER BY version ASC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, familyRootID); err != nil {
		return nil, fmt.Errorf("list document family: %w", err)
	}
	return docs, nil
}

// UpdateDocumentParams defines the mutable fields.
type UpdateDocumentParams struct {
	DocumentType  *models.DocumentType
	Status        *models.DocumentStatus
	OCRText       *string
	OCRConfidence *float64
	OCRMetadata   *models.OCRMetadata
}

// Update persists the provided changes and touches the updated timestamp.
func (r *DocumentRepository) Update(ctx context.Context, id string, params UpdateDocumentParams) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	argPos := 1

	if params.DocumentType != nil {
		set = append(set, fmt.Sprintf("document_type = $%d", argPos))
		args = append(args, *params.DocumentType)
		argPos++
	}
	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.OCRText != nil {
		set = append(set, fmt.Sprintf("ocr_text = $%d", argPos))
		args = append(args, *params.OCRText)
		argPos++
	}
	if params.OCRConfidence != nil {
		set = append(set, fmt.Sprintf("ocr_confidence = $%d", argPos))
		args = append(args, *params.OCRConfidence)
		argPos++
	}
	if params.OCRMetadata != nil {
		set = append(set, fmt.Sprintf("ocr_metadata = $%d", argPos))
		args = append(args, *params.OCRMetadata)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Delete removes the metadata record. Sibling versions are untouched.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
