package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockOCREngineDeterministicWithSeed(t *testing.T) {
	a, err := NewMockOCREngineWithSeed(7).Extract(context.Background(), "x.pdf", "application/pdf")
	require.NoError(t, err)
	b, err := NewMockOCREngineWithSeed(7).Extract(context.Background(), "x.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.ExtractedFields, b.ExtractedFields)
}

func TestMockOCREngineConfidenceBounds(t *testing.T) {
	engine := NewMockOCREngineWithSeed(99)
	for i := 0; i < 50; i++ {
		result, err := engine.Extract(context.Background(), "scan.jpg", "image/jpeg")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Confidence, 0.75)
		assert.LessOrEqual(t, result.Confidence, 0.98)
		assert.NotEmpty(t, result.Text)
	}
}

func TestMockOCREngineTemplatesByMime(t *testing.T) {
	engine := NewMockOCREngineWithSeed(3)

	pdf, err := engine.Extract(context.Background(), "a.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, pdf.Text, "LAND RECORD EXTRACT")

	img, err := engine.Extract(context.Background(), "a.png", "image/png")
	require.NoError(t, err)
	assert.Contains(t, img.Text, "Scanned document image")
}

func TestMockOCREngineHonoursContextCancel(t *testing.T) {
	engine := NewMockOCREngine(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Extract(ctx, "a.pdf", "application/pdf")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockOCREngineExtractedFields(t *testing.T) {
	result, err := NewMockOCREngineWithSeed(11).Extract(context.Background(), "a.pdf", "application/pdf")
	require.NoError(t, err)

	for _, key := range []string{"beneficiary_name", "village", "survey_number", "area_hectares"} {
		assert.Contains(t, result.ExtractedFields, key)
	}
	assert.Contains(t, result.Metadata, "processing_time")
	assert.Contains(t, result.Metadata, "page_count")
}
