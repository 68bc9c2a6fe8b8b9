package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	"github.com/fra-connect/atlas-api/internal/service"
	"github.com/fra-connect/atlas-api/pkg/storage"
)

type fakeDocumentStore struct {
	docs map[string]models.Document
	seq  int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]models.Document)}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	f.seq++
	doc.ID = fmt.Sprintf("doc-%d", f.seq)
	doc.Version = 1
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocumentStore) CreateVersion(ctx context.Context, doc *models.Document, familyID string) error {
	f.seq++
	doc.ID = fmt.Sprintf("doc-%d", f.seq)
	version := 1
	for _, d := range f.docs {
		if d.ID == familyID || (d.ParentDocumentID != nil && *d.ParentDocumentID == familyID) {
			if d.Version >= version {
				version = d.Version + 1
			}
		}
	}
	doc.Version = version
	parent := familyID
	doc.ParentDocumentID = &parent
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocumentStore) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if d, ok := f.docs[id]; ok {
		copied := d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDocumentStore) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	out := make([]models.Document, 0, len(f.docs))
	for _, d := range f.docs {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocumentStore) ListFamily(ctx context.Context, familyRootID string) ([]models.Document, error) {
	out := make([]models.Document, 0, 2)
	for _, d := range f.docs {
		if d.ID == familyRootID || (d.ParentDocumentID != nil && *d.ParentDocumentID == familyRootID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (f *fakeDocumentStore) Update(ctx context.Context, id string, params repository.UpdateDocumentParams) error {
	d, ok := f.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.DocumentType != nil {
		d.DocumentType = *params.DocumentType
	}
	if params.Status != nil {
		d.Status = *params.Status
	}
	if params.OCRText != nil {
		d.OCRText = params.OCRText
	}
	if params.OCRConfidence != nil {
		d.OCRConfidence = *params.OCRConfidence
	}
	if params.OCRMetadata != nil {
		d.OCRMetadata = *params.OCRMetadata
	}
	f.docs[id] = d
	return nil
}

func (f *fakeDocumentStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.docs, id)
	return nil
}

func newDocumentRouter(t *testing.T, store *fakeDocumentStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := service.NewDocumentService(store, files, service.NewMockOCREngineWithSeed(11), nil, nil, service.DocumentServiceConfig{})
	h := NewDocumentHandler(svc)

	r := gin.New()
	r.POST("/documents/upload", h.Upload)
	r.GET("/documents", h.List)
	r.GET("/documents/:id", h.Get)
	r.GET("/documents/:id/download", h.Download)
	r.POST("/documents/:id/ocr", h.RunOCR)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename)}
		header["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestDocumentHandlerUpload(t *testing.T) {
	store := newFakeDocumentStore()
	r := newDocumentRouter(t, store)

	body, contentType := multipartUpload(t,
		map[string]string{"document_type": "land_document", "uploaded_by": "officer-1"},
		"file", "patta.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "patta.pdf", doc.OriginalFilename)
	assert.Equal(t, models.DocumentStatusUploaded, doc.Status)
	require.Len(t, store.docs, 1)
}

func TestDocumentHandlerUploadRequiresDocumentType(t *testing.T) {
	store := newFakeDocumentStore()
	r := newDocumentRouter(t, store)

	body, contentType := multipartUpload(t, nil,
		"file", "patta.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.docs)
}

func TestDocumentHandlerUploadRequiresFilePart(t *testing.T) {
	r := newDocumentRouter(t, newFakeDocumentStore())

	body, contentType := multipartUpload(t,
		map[string]string{"document_type": "land_document"}, "", "", "", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_ERROR", env.Error["code"])
}

func TestDocumentHandlerDownload(t *testing.T) {
	store := newFakeDocumentStore()
	r := newDocumentRouter(t, store)

	content := []byte("scanned survey settlement")
	body, contentType := multipartUpload(t,
		map[string]string{"document_type": "survey_settlement"},
		"file", "survey 12.png", "image/png", content)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID+"/download", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="survey 12.png"`)
	got, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDocumentHandlerRunOCR(t *testing.T) {
	store := newFakeDocumentStore()
	r := newDocumentRouter(t, store)

	body, contentType := multipartUpload(t,
		map[string]string{"document_type": "land_document"},
		"file", "patta.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/documents/"+doc.ID+"/ocr", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var processed models.Document
	require.NoError(t, json.Unmarshal(env.Data, &processed))
	assert.Equal(t, models.DocumentStatusOCRCompleted, processed.Status)
	require.NotNil(t, processed.OCRText)
	assert.NotEmpty(t, *processed.OCRText)
	assert.GreaterOrEqual(t, processed.OCRConfidence, 0.75)
}

func TestDocumentHandlerGetNotFound(t *testing.T) {
	r := newDocumentRouter(t, newFakeDocumentStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
