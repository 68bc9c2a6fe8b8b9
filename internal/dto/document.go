package dto

// UploadDocumentRequest carries the multipart form fields accompanying a
// document upload. The file part itself is handled separately.
type UploadDocumentRequest struct {
	DocumentType string `form:"document_type" binding:"required"`
	ClaimID      string `form:"claim_id"`
	UploadedBy   string `form:"uploaded_by"`
}

// UpdateDocumentRequest carries a partial document update. Only fields
// explicitly provided are applied.
type UpdateDocumentRequest struct {
	DocumentType *string `json:"document_type,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// BulkOCRRequest lists document ids to run OCR against.
type BulkOCRRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required"`
}

// BulkItemOutcome reports the result of one item in a bulk operation.
type BulkItemOutcome struct {
	Ref      string      `json:"ref"`
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	Document interface{} `json:"document,omitempty"`
}

// BulkResult aggregates per-item outcomes. Partial failure never aborts
// the batch and there is no rollback.
type BulkResult struct {
	Items     []BulkItemOutcome `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}
