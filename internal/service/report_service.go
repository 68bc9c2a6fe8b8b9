package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
	"github.com/fra-connect/atlas-api/pkg/export"
	"github.com/fra-connect/atlas-api/pkg/jobs"
)

const reportJobType = "claims_register"

var claimsRegisterHeaders = []string{
	"Claim Number", "Beneficiary", "Village", "Type", "Status",
	"Area (ha)", "AI Recommendation", "AI Confidence", "Filed At",
}

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type reportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error)
}

type reportEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ReportDownload wraps a readable rendered report.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ReportService produces claims-register exports asynchronously. A request
// creates a QUEUED job row and pushes it onto the worker queue; workers
// render the dataset, store the file and attach a signed download URL.
type ReportService struct {
	repo     reportJobStore
	claims   mapClaimReader
	villages mapVillageReader
	files    reportFileStore
	signer   reportSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	metrics  *MetricsService
	logger   *zap.Logger
	basePath string

	queue reportEnqueuer
}

// NewReportService constructs the report service. Attach the queue with
// SetQueue before accepting requests.
func NewReportService(repo reportJobStore, claims mapClaimReader, villages mapVillageReader, files reportFileStore, signer reportSigner, metrics *MetricsService, logger *zap.Logger, basePath string) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:     repo,
		claims:   claims,
		villages: villages,
		files:    files,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		metrics:  metrics,
		logger:   logger,
		basePath: strings.TrimSuffix(basePath, "/"),
	}
}

// SetQueue wires the worker queue. Split from the constructor because the
// queue handler needs the service.
func (s *ReportService) SetQueue(queue reportEnqueuer) {
	s.queue = queue
}

// Request validates and persists a new report job, then enqueues it.
func (s *ReportService) Request(ctx context.Context, format models.ReportFormat, claimStatus, villageID, requestedBy string) (*models.ReportJob, error) {
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
	status := models.ClaimStatus(claimStatus)
	if claimStatus != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown claim status %q", claimStatus))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue not running")
	}

	job := &models.ReportJob{
		Type:   models.ReportTypeClaimsRegister,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{
			Format:      format,
			ClaimStatus: status,
			VillageID:   villageID,
		},
		RequestedBy: requestedBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: reportJobType}); err != nil {
		msg := err.Error()
		failed := models.ReportStatusFailed
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &failed, ErrorMessage: &msg})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Get returns job state for polling.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// Process is the queue handler rendering one report job.
func (s *ReportService) Process(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", job.ID, err)
	}
	if record.Status == models.ReportStatusFinished {
		return nil
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	if err := s.render(ctx, record); err != nil {
		s.logger.Error("report job failed", zap.String("job_id", record.ID), zap.Error(err))
		msg := err.Error()
		failed := models.ReportStatusFailed
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{Status: &failed, ErrorMessage: &msg, FinishedAt: &now})
		if s.metrics != nil {
			s.metrics.ReportJobFinished(string(models.ReportStatusFailed))
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.ReportJobFinished(string(models.ReportStatusFinished))
	}
	return nil
}

func (s *ReportService) render(ctx context.Context, record *models.ReportJob) error {
	claims, err := s.claims.List(ctx, models.ClaimFilter{
		Status:    record.Params.ClaimStatus,
		VillageID: record.Params.VillageID,
		Limit:     1000,
	})
	if err != nil {
		return fmt.Errorf("list claims for report: %w", err)
	}

	dataset := s.buildDataset(ctx, claims)

	var payload []byte
	switch record.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Claims Register")
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.%s", reportJobType, record.ID, record.Params.Format)
	if _, err := s.files.Save(filename, payload); err != nil {
		return fmt.Errorf("store report file: %w", err)
	}

	token, _, err := s.signer.Generate(record.ID, filename)
	if err != nil {
		return fmt.Errorf("sign report url: %w", err)
	}
	resultURL := fmt.Sprintf("%s/reports/%s/download?token=%s", s.basePath, record.ID, token)

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finish report job: %w", err)
	}
	s.logger.Info("report rendered",
		zap.String("job_id", record.ID),
		zap.String("format", string(record.Params.Format)),
		zap.Int("rows", len(dataset.Rows)))
	return nil
}

func (s *ReportService) buildDataset(ctx context.Context, claims []models.Claim) export.Dataset {
	villageNames := map[string]string{}
	rows := make([]map[string]string, 0, len(claims))
	for _, c := range claims {
		name, ok := villageNames[c.VillageID]
		if !ok {
			if village, err := s.villages.FindByID(ctx, c.VillageID); err == nil {
				name = village.Name
			}
			villageNames[c.VillageID] = name
		}
		rows = append(rows, map[string]string{
			"Claim Number":      c.ClaimNumber,
			"Beneficiary":       c.BeneficiaryName,
			"Village":           name,
			"Type":              string(c.ClaimType),
			"Status":            string(c.Status),
			"Area (ha)":         strconv.FormatFloat(c.AreaClaimed, 'f', 2, 64),
			"AI Recommendation": c.AIRecommendation,
			"AI Confidence":     strconv.FormatFloat(c.AIConfidence, 'f', 2, 64),
			"Filed At":          c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: claimsRegisterHeaders, Rows: rows}
}

// Download verifies a signed token against the job and opens the rendered file.
func (s *ReportService) Download(ctx context.Context, jobID, token string) (*ReportDownload, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report not finished")
	}

	tokenJobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	if tokenJobID != job.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match report")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file missing")
	}

	contentType := "text/csv"
	if job.Params.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	return &ReportDownload{File: file, Filename: relPath, ContentType: contentType}, nil
}

// CleanupExpired removes rendered files older than the given age. Runs on a
// schedule; files this old carry signed URLs that no longer validate.
func (s *ReportService) CleanupExpired(olderThan time.Duration) int {
	deleted, err := s.files.CleanupOlderThan(olderThan)
	if err != nil {
		s.logger.Warn("report cleanup failed", zap.Error(err))
		return 0
	}
	if len(deleted) > 0 {
		s.logger.Info("removed expired report files", zap.Int("count", len(deleted)))
	}
	return len(deleted)
}
