package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	"github.com/fra-connect/atlas-api/pkg/jobs"
	"github.com/fra-connect/atlas-api/pkg/storage"
)

type mockReportRepo struct {
	jobsByID map[string]models.ReportJob
	seq      int
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{jobsByID: make(map[string]models.ReportJob)}
}

func (m *mockReportRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	m.jobsByID[job.ID] = *job
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if j, ok := m.jobsByID[id]; ok {
		copied := j
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	j, ok := m.jobsByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		j.Status = *params.Status
	}
	if params.ResultURL != nil {
		j.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		j.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		j.FinishedAt = params.FinishedAt
	}
	m.jobsByID[id] = j
	return nil
}

type recordingQueue struct {
	enqueued []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newTestReportService(t *testing.T) (*ReportService, *mockReportRepo, *recordingQueue) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	villages := &mockVillageReader{villages: map[string]models.Village{
		"v1": {ID: "v1", Name: "Rampur"},
	}}
	claims := &mockClaimLister{claims: []models.Claim{
		{ID: "c1", ClaimNumber: "FRA-2024-000001", BeneficiaryName: "Ramesh Kumar", VillageID: "v1",
			ClaimType: models.ClaimTypeIFR, Status: models.ClaimStatusPending,
			AreaClaimed: 2.5, AIRecommendation: "approve", AIConfidence: 0.85},
		{ID: "c2", ClaimNumber: "FRA-2024-000002", BeneficiaryName: "Sita Devi", VillageID: "v1",
			ClaimType: models.ClaimTypeCFR, Status: models.ClaimStatusApproved,
			AreaClaimed: 5.0, AIRecommendation: "review", AIConfidence: 0.65},
	}}

	repo := newMockReportRepo()
	svc := NewReportService(repo, claims, villages, files, signer, nil, zap.NewNop(), "/api")
	queue := &recordingQueue{}
	svc.SetQueue(queue)
	return svc, repo, queue
}

func TestReportServiceRequestQueuesJob(t *testing.T) {
	svc, repo, queue := newTestReportService(t)

	job, err := svc.Request(context.Background(), models.ReportFormatCSV, "pending", "", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, models.ReportTypeClaimsRegister, job.Type)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	assert.Equal(t, models.ReportStatusQueued, repo.jobsByID[job.ID].Status)
}

func TestReportServiceRequestValidation(t *testing.T) {
	svc, _, _ := newTestReportService(t)

	_, err := svc.Request(context.Background(), "xlsx", "", "", "")
	require.Error(t, err)

	_, err = svc.Request(context.Background(), models.ReportFormatCSV, "imaginary", "", "")
	require.Error(t, err)
}

func TestReportServiceProcessRendersCSV(t *testing.T) {
	svc, repo, _ := newTestReportService(t)

	job, err := svc.Request(context.Background(), models.ReportFormatCSV, "", "", "admin-1")
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	finished := repo.jobsByID[job.ID]
	assert.Equal(t, models.ReportStatusFinished, finished.Status)
	require.NotNil(t, finished.ResultURL)
	require.NotNil(t, finished.FinishedAt)
	assert.True(t, strings.HasPrefix(*finished.ResultURL, "/api/reports/"+job.ID+"/download?token="))

	parsed, err := url.Parse(*finished.ResultURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	download, err := svc.Download(context.Background(), job.ID, token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, "text/csv", download.ContentType)

	records, err := csv.NewReader(download.File).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, claimsRegisterHeaders, records[0])
	assert.Equal(t, "FRA-2024-000001", records[1][0])
	assert.Equal(t, "Rampur", records[1][2])
}

func TestReportServiceProcessRendersPDF(t *testing.T) {
	svc, repo, _ := newTestReportService(t)

	job, err := svc.Request(context.Background(), models.ReportFormatPDF, "", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	finished := repo.jobsByID[job.ID]
	require.NotNil(t, finished.ResultURL)
	parsed, _ := url.Parse(*finished.ResultURL)
	download, err := svc.Download(context.Background(), job.ID, parsed.Query().Get("token"))
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	assert.Equal(t, "application/pdf", download.ContentType)
	header := make([]byte, 5)
	_, err = io.ReadFull(download.File, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(header))
}

func TestReportServiceDownloadRejectsForeignToken(t *testing.T) {
	svc, repo, _ := newTestReportService(t)
	ctx := context.Background()

	first, err := svc.Request(ctx, models.ReportFormatCSV, "", "", "")
	require.NoError(t, err)
	second, err := svc.Request(ctx, models.ReportFormatCSV, "", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, jobs.Job{ID: first.ID}))
	require.NoError(t, svc.Process(ctx, jobs.Job{ID: second.ID}))

	parsed, _ := url.Parse(*repo.jobsByID[first.ID].ResultURL)
	stolen := parsed.Query().Get("token")

	_, err = svc.Download(ctx, second.ID, stolen)
	require.Error(t, err)

	_, err = svc.Download(ctx, first.ID, "garbage")
	require.Error(t, err)
}

func TestReportServiceDownloadBeforeFinish(t *testing.T) {
	svc, _, _ := newTestReportService(t)

	job, err := svc.Request(context.Background(), models.ReportFormatCSV, "", "", "")
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), job.ID, "whatever")
	require.Error(t, err)
}

func TestReportServiceCleanupExpired(t *testing.T) {
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	villages := &mockVillageReader{villages: map[string]models.Village{"v1": {ID: "v1", Name: "Rampur"}}}
	claims := &mockClaimLister{claims: []models.Claim{
		{ID: "c1", ClaimNumber: "FRA-2024-000001", VillageID: "v1",
			ClaimType: models.ClaimTypeIFR, Status: models.ClaimStatusPending, AreaClaimed: 2.5},
	}}
	svc := NewReportService(newMockReportRepo(), claims, villages, files, signer, nil, zap.NewNop(), "/api")
	svc.SetQueue(&recordingQueue{})

	job, err := svc.Request(context.Background(), models.ReportFormatCSV, "", "", "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	path := files.Path(fmt.Sprintf("claims_register_%s.csv", job.ID))
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.CleanupExpired(time.Hour))

	stale := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, stale, stale))
	assert.Equal(t, 1, svc.CleanupExpired(time.Hour))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
