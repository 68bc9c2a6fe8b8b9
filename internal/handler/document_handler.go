package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fra-connect/atlas-api/internal/dto"
	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/service"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
	"github.com/fra-connect/atlas-api/pkg/response"
)

// DocumentHandler exposes document lifecycle endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func uploadFromFileHeader(fh *multipart.FileHeader) (service.DocumentUpload, func(), error) {
	file, err := fh.Open()
	if err != nil {
		return service.DocumentUpload{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file part")
	}
	upload := service.DocumentUpload{
		Filename: fh.Filename,
		Size:     fh.Size,
		MimeType: fh.Header.Get("Content-Type"),
		Content:  file,
	}
	return upload, func() { _ = file.Close() }, nil
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param document_type formData string true "Document type"
// @Param claim_id formData string false "Associated claim"
// @Param uploaded_by formData string false "Uploading user"
// @Success 201 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file part required"))
		return
	}
	upload, closeFn, err := uploadFromFileHeader(fh)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	doc, err := h.documents.Upload(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// BulkUpload godoc
// @Summary Upload multiple documents in one request
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Document files"
// @Param document_type formData string true "Document type applied to every file"
// @Success 200 {object} response.Envelope
// @Router /documents/bulk-upload [post]
func (h *DocumentHandler) BulkUpload(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one file required"))
		return
	}

	items := make([]service.BulkUploadItem, 0, len(files))
	closers := make([]func(), 0, len(files))
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()
	for _, fh := range files {
		upload, closeFn, err := uploadFromFileHeader(fh)
		if err != nil {
			response.Error(c, err)
			return
		}
		closers = append(closers, closeFn)
		items = append(items, service.BulkUploadItem{Meta: req, Upload: upload})
	}

	result := h.documents.BulkUpload(c.Request.Context(), items)
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param claim_id query string false "Filter by claim"
// @Param document_type query string false "Filter by type"
// @Param status query string false "Filter by status"
// @Param uploaded_by query string false "Filter by uploader"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		ClaimID:      c.Query("claim_id"),
		DocumentType: models.DocumentType(c.Query("document_type")),
		Status:       models.DocumentStatus(c.Query("status")),
		UploadedBy:   c.Query("uploaded_by"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}
	docs, err := h.documents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs)
}

// Get godoc
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// Update godoc
// @Summary Update document type or status
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.documents.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// Delete godoc
// @Summary Delete a document version
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download the stored file
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	download, err := h.documents.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	}
	c.DataFromReader(http.StatusOK, download.Size, download.MimeType, download.File, headers)
}

// RunOCR godoc
// @Summary Run OCR extraction on a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/ocr [post]
func (h *DocumentHandler) RunOCR(c *gin.Context) {
	doc, err := h.documents.RequestOCR(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// BulkOCR godoc
// @Summary Run OCR on a batch of documents
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.BulkOCRRequest true "Document IDs"
// @Success 200 {object} response.Envelope
// @Router /documents/bulk-ocr [post]
func (h *DocumentHandler) BulkOCR(c *gin.Context) {
	var req dto.BulkOCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if len(req.DocumentIDs) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document_ids required"))
		return
	}
	result := h.documents.BulkOCR(c.Request.Context(), req.DocumentIDs)
	response.JSON(c, http.StatusOK, result)
}

// CreateVersion godoc
// @Summary Upload a new version of an existing document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Any document ID in the family"
// @Param file formData file true "Replacement file"
// @Param uploaded_by formData string false "Uploading user"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/version [post]
func (h *DocumentHandler) CreateVersion(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file part required"))
		return
	}
	upload, closeFn, err := uploadFromFileHeader(fh)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	doc, err := h.documents.CreateVersion(c.Request.Context(), c.Param("id"), c.PostForm("uploaded_by"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// ListVersions godoc
// @Summary List all versions in a document family
// @Tags Documents
// @Produce json
// @Param id path string true "Any document ID in the family"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions [get]
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	docs, err := h.documents.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs)
}
