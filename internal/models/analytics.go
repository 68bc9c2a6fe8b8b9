package models

// Analytics aggregates dashboard counters. Processing time, OCR accuracy
// and scheme integration figures are fixed mock values.
type Analytics struct {
	TotalVillages          int     `json:"total_villages"`
	TotalClaims            int     `json:"total_claims"`
	PendingClaims          int     `json:"pending_claims"`
	ApprovedClaims         int     `json:"approved_claims"`
	RejectedClaims         int     `json:"rejected_claims"`
	AverageProcessingTime  float64 `json:"average_processing_time"`
	OCRAccuracy            float64 `json:"ocr_accuracy"`
	SchemeIntegrationCount int     `json:"scheme_integration_count"`
}
