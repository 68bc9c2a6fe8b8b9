package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/dto"
	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
	"github.com/fra-connect/atlas-api/pkg/storage"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	CreateVersion(ctx context.Context, doc *models.Document, familyID string) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	ListFamily(ctx context.Context, familyRootID string) ([]models.Document, error)
	Update(ctx context.Context, id string, params repository.UpdateDocumentParams) error
	Delete(ctx context.Context, id string) error
}

type documentFileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// DocumentUpload carries upload metadata and the stream reader.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// DocumentDownload bundles a stored file with response metadata.
type DocumentDownload struct {
	File     *os.File
	Filename string
	MimeType string
	Size     int64
}

// BulkUploadItem pairs form metadata with one file of a bulk upload.
type BulkUploadItem struct {
	Meta   dto.UploadDocumentRequest
	Upload DocumentUpload
}

// DocumentServiceConfig holds upload validation parameters.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	MaxListLimit int
	DefaultLimit int
}

// DocumentService owns the lifecycle of uploaded claim evidence: status
// transitions, OCR result attachment and the versioning chain.
type DocumentService struct {
	repo    documentStore
	files   documentFileStore
	engine  OCREngine
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DocumentServiceConfig
	mimeSet map[string]struct{}
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, files documentFileStore, engine OCREngine, metrics *MetricsService, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"image/tiff",
		}
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 1000
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &DocumentService{
		repo:    repo,
		files:   files,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Upload validates and persists a fresh version-1 document. Validation runs
// before any side effect: a disallowed MIME type writes nothing.
func (s *DocumentService) Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload DocumentUpload) (*models.Document, error) {
	docType := models.DocumentType(meta.DocumentType)
	if !docType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", meta.DocumentType))
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	filename := storage.GenerateFilename(upload.Filename)
	path, err := s.files.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file")
	}

	doc := &models.Document{
		Filename:         filename,
		OriginalFilename: upload.Filename,
		FilePath:         path,
		FileSize:         upload.Size,
		MimeType:         upload.MimeType,
		DocumentType:     docType,
		Status:           models.DocumentStatusUploaded,
		Version:          1,
		ClaimID:          normalizeRef(meta.ClaimID),
		UploadedBy:       meta.UploadedBy,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.files.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document record")
	}
	if s.metrics != nil {
		s.metrics.DocumentStored()
	}
	return doc, nil
}

// RequestOCR moves the document through processing into ocr_completed and
// attaches the extraction result. Confidence is stored as reported; callers
// interpret it.
func (s *DocumentService) RequestOCR(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	processing := models.DocumentStatusProcessing
	if err := s.repo.Update(ctx, id, repository.UpdateDocumentParams{Status: &processing}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark document processing")
	}

	result, err := s.engine.Extract(ctx, doc.FilePath, doc.MimeType)
	if err != nil {
		if s.metrics != nil {
			s.metrics.OCRRun("error")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "ocr extraction failed")
	}

	completed := models.DocumentStatusOCRCompleted
	metadata := result.Metadata
	if metadata == nil {
		metadata = models.OCRMetadata{}
	}
	if len(result.ExtractedFields) > 0 {
		metadata["extracted_fields"] = result.ExtractedFields
	}
	params := repository.UpdateDocumentParams{
		Status:        &completed,
		OCRText:       &result.Text,
		OCRConfidence: &result.Confidence,
		OCRMetadata:   &metadata,
	}
	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ocr result")
	}
	if s.metrics != nil {
		s.metrics.OCRRun("ok")
	}

	doc.Status = completed
	doc.OCRText = &result.Text
	doc.OCRConfidence = result.Confidence
	doc.OCRMetadata = metadata
	return doc, nil
}

// CreateVersion stores a new file as the next version of an existing
// family. Always legal regardless of the referenced document's status, and
// the referenced document's state is left untouched. Document type and claim
// link are inherited from the referenced document.
func (s *DocumentService) CreateVersion(ctx context.Context, parentID string, uploadedBy string, upload DocumentUpload) (*models.Document, error) {
	parent, err := s.find(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	filename := storage.GenerateFilename(upload.Filename)
	path, err := s.files.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file")
	}

	doc := &models.Document{
		Filename:         filename,
		OriginalFilename: upload.Filename,
		FilePath:         path,
		FileSize:         upload.Size,
		MimeType:         upload.MimeType,
		DocumentType:     parent.DocumentType,
		Status:           models.DocumentStatusUploaded,
		ClaimID:          parent.ClaimID,
		UploadedBy:       uploadedBy,
	}
	if err := s.repo.CreateVersion(ctx, doc, parent.FamilyRootID()); err != nil {
		_ = s.files.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document version")
	}
	if s.metrics != nil {
		s.metrics.DocumentStored()
	}
	return doc, nil
}

// ListVersions returns the whole family containing id, ascending by version.
// Any family member's id resolves to the same listing.
func (s *DocumentService) ListVersions(ctx context.Context, id string) ([]models.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.ListFamily(ctx, doc.FamilyRootID())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document versions")
	}
	return versions, nil
}

// Get fetches one document.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.find(ctx, id)
}

// List returns documents matching the filter with a clamped limit.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultLimit
	}
	if filter.Limit > s.cfg.MaxListLimit {
		filter.Limit = s.cfg.MaxListLimit
	}
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", filter.DocumentType))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document status %q", filter.Status))
	}
	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Update applies a partial update; only explicitly provided fields change.
func (s *DocumentService) Update(ctx context.Context, id string, req dto.UpdateDocumentRequest) (*models.Document, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	var params repository.UpdateDocumentParams
	if req.DocumentType != nil {
		docType := models.DocumentType(*req.DocumentType)
		if !docType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", *req.DocumentType))
		}
		params.DocumentType = &docType
	}
	if req.Status != nil {
		status := models.DocumentStatus(*req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document status %q", *req.Status))
		}
		params.Status = &status
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	return s.find(ctx, id)
}

// Download opens the backing file for streaming with its original name.
func (s *DocumentService) Download(ctx context.Context, id string) (*DocumentDownload, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.files.Open(doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "stored file missing")
	}
	return &DocumentDownload{
		File:     file,
		Filename: doc.OriginalFilename,
		MimeType: doc.MimeType,
		Size:     doc.FileSize,
	}, nil
}

// Delete removes the metadata record and best-effort removes the backing
// file. A missing file is not an error; the metadata delete is
// authoritative. Sibling versions and their parent references are left
// untouched.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.Delete(doc.FilePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("document_id", id), zap.String("path", doc.FilePath), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	return nil
}

// BulkUpload applies Upload to each item. Items succeed or fail
// independently; there is no rollback.
func (s *DocumentService) BulkUpload(ctx context.Context, items []BulkUploadItem) dto.BulkResult {
	result := dto.BulkResult{Items: make([]dto.BulkItemOutcome, 0, len(items))}
	for _, item := range items {
		outcome := dto.BulkItemOutcome{Ref: item.Upload.Filename}
		doc, err := s.Upload(ctx, item.Meta, item.Upload)
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			outcome.Success = true
			outcome.Document = doc
			result.Succeeded++
		}
		result.Items = append(result.Items, outcome)
	}
	return result
}

// BulkOCR applies RequestOCR to each id. Items succeed or fail
// independently; there is no rollback.
func (s *DocumentService) BulkOCR(ctx context.Context, ids []string) dto.BulkResult {
	result := dto.BulkResult{Items: make([]dto.BulkItemOutcome, 0, len(ids))}
	for _, id := range ids {
		outcome := dto.BulkItemOutcome{Ref: id}
		doc, err := s.RequestOCR(ctx, id)
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			outcome.Success = true
			outcome.Document = doc
			result.Succeeded++
		}
		result.Items = append(result.Items, outcome)
	}
	return result
}

func (s *DocumentService) find(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

func (s *DocumentService) validateUpload(upload DocumentUpload) error {
	if upload.Content == nil || upload.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType := strings.ToLower(strings.TrimSpace(upload.MimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mime type %q not allowed", upload.MimeType))
	}
	return nil
}

func normalizeRef(ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	return &ref
}
