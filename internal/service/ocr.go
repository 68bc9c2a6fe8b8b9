package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/fra-connect/atlas-api/internal/models"
)

// OCRResult is the output contract of a recognition run.
type OCRResult struct {
	Text            string
	Confidence      float64
	Metadata        models.OCRMetadata
	ExtractedFields map[string]string
}

// OCREngine extracts text and structured fields from a stored file.
// The mock implementation below stands in for a real recognition service;
// a production engine is expected to slot in behind the same contract.
type OCREngine interface {
	Extract(ctx context.Context, path, mimeType string) (*OCRResult, error)
}

// MockOCREngine fabricates plausible OCR output. Results are templated by
// coarse MIME category and filled with randomized placeholder values; they
// carry no relationship to the actual file contents.
type MockOCREngine struct {
	latency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockOCREngine constructs the engine. A zero latency disables the
// simulated processing delay.
func NewMockOCREngine(latency time.Duration) *MockOCREngine {
	return &MockOCREngine{
		latency: latency,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewMockOCREngineWithSeed constructs a deterministic engine for tests.
func NewMockOCREngineWithSeed(seed int64) *MockOCREngine {
	return &MockOCREngine{rng: rand.New(rand.NewSource(seed))}
}

var (
	mockBeneficiaries = []string{"Ramesh Kumar", "Sita Devi", "Mangal Singh", "Phoolmati Bai", "Budhram Gond"}
	mockVillages      = []string{"Rampur", "Sundarpur", "Vanagram", "Forestpur", "Tribalnagar"}
	mockLanguages     = []string{"hi", "en", "hi,en"}
)

// Extract produces a templated recognition result.
func (e *MockOCREngine) Extract(ctx context.Context, path, mimeType string) (*OCRResult, error) {
	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	beneficiary := mockBeneficiaries[e.rng.Intn(len(mockBeneficiaries))]
	village := mockVillages[e.rng.Intn(len(mockVillages))]
	area := 0.5 + e.rng.Float64()*7.5
	surveyNo := fmt.Sprintf("%d/%d", 100+e.rng.Intn(900), 1+e.rng.Intn(9))
	year := 1980 + e.rng.Intn(40)

	var text string
	if strings.HasPrefix(mimeType, "application/pdf") {
		text = fmt.Sprintf(
			"LAND RECORD EXTRACT\nHolder: %s\nVillage: %s\nSurvey No: %s\nArea: %.2f hectares\nRecord Year: %d\nThe above holding is recorded in the settlement register.",
			beneficiary, village, surveyNo, area, year,
		)
	} else {
		text = fmt.Sprintf(
			"Scanned document image.\nName: %s\nVillage: %s\nArea under cultivation: %.2f ha\nMarked survey number %s.",
			beneficiary, village, area, surveyNo,
		)
	}

	pages := 1 + e.rng.Intn(5)
	processing := 500 + e.rng.Intn(2500)

	return &OCRResult{
		Text:       text,
		Confidence: 0.75 + e.rng.Float64()*0.23,
		Metadata: models.OCRMetadata{
			"processing_time": fmt.Sprintf("%.2fs", float64(processing)/1000),
			"language":        mockLanguages[e.rng.Intn(len(mockLanguages))],
			"page_count":      pages,
		},
		ExtractedFields: map[string]string{
			"beneficiary_name": beneficiary,
			"village":          village,
			"survey_number":    surveyNo,
			"area_hectares":    fmt.Sprintf("%.2f", area),
		},
	}, nil
}
