package dto

import "github.com/fra-connect/atlas-api/internal/models"

// ReportRequest asks for a claims-register export.
type ReportRequest struct {
	Format      models.ReportFormat `json:"format" binding:"required"`
	ClaimStatus string              `json:"claim_status,omitempty"`
	VillageID   string              `json:"village_id,omitempty"`
	RequestedBy string              `json:"requested_by,omitempty"`
}

// ReportJobResponse acknowledges an accepted report job.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job progress to clients.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
