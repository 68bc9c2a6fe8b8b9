package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
)

type mockVillageReader struct {
	villages map[string]models.Village
}

func (m *mockVillageReader) List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error) {
	out := make([]models.Village, 0, len(m.villages))
	for _, v := range m.villages {
		if filter.State != "" && v.State != filter.State {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *mockVillageReader) FindByID(ctx context.Context, id string) (*models.Village, error) {
	if v, ok := m.villages[id]; ok {
		copied := v
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type mockClaimLister struct {
	claims []models.Claim
}

func (m *mockClaimLister) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	return m.claims, nil
}

func TestMapServiceVillages(t *testing.T) {
	villages := &mockVillageReader{villages: map[string]models.Village{
		"v1": {ID: "v1", Name: "Rampur", State: "Madhya Pradesh", District: "Balaghat",
			Coordinates: models.Coordinates{Lat: 21.8, Lng: 80.1}, TotalForestArea: 450.5},
	}}
	svc := NewMapService(villages, &mockClaimLister{}, zap.NewNop())

	collection, err := svc.Villages(context.Background(), models.VillageFilter{})
	require.NoError(t, err)

	assert.Equal(t, "FeatureCollection", collection.Type)
	require.Len(t, collection.Features, 1)
	feature := collection.Features[0]
	assert.Equal(t, "Feature", feature.Type)
	assert.Equal(t, "Rampur", feature.Properties["name"])
	assert.Equal(t, "Point", feature.Geometry.Type)
	// GeoJSON ordering is [lng, lat].
	assert.Equal(t, [2]float64{80.1, 21.8}, feature.Geometry.Coordinates)
}

func TestMapServiceClaimsSkipMissingVillage(t *testing.T) {
	villages := &mockVillageReader{villages: map[string]models.Village{
		"v1": {ID: "v1", Name: "Rampur", Coordinates: models.Coordinates{Lat: 21.8, Lng: 80.1}},
	}}
	claims := &mockClaimLister{claims: []models.Claim{
		{ID: "c1", ClaimNumber: "FRA-2024-000001", VillageID: "v1", Status: models.ClaimStatusPending,
			ClaimType: models.ClaimTypeIFR, AreaClaimed: 2.5, AIRecommendation: "approve", AIConfidence: 0.85},
		{ID: "c2", ClaimNumber: "FRA-2024-000002", VillageID: "ghost", Status: models.ClaimStatusPending},
	}}
	svc := NewMapService(villages, claims, zap.NewNop())

	collection, err := svc.Claims(context.Background(), models.ClaimFilter{})
	require.NoError(t, err)

	require.Len(t, collection.Features, 1)
	feature := collection.Features[0]
	assert.Equal(t, "FRA-2024-000001", feature.Properties["claim_number"])
	assert.Equal(t, "Rampur", feature.Properties["village_name"])
	assert.Equal(t, [2]float64{80.1, 21.8}, feature.Geometry.Coordinates)
}

func TestMapServiceClaimsEmptyCollection(t *testing.T) {
	svc := NewMapService(&mockVillageReader{}, &mockClaimLister{}, zap.NewNop())

	collection, err := svc.Claims(context.Background(), models.ClaimFilter{})
	require.NoError(t, err)
	assert.NotNil(t, collection.Features)
	assert.Empty(t, collection.Features)
}

func TestMapServiceClaimsRejectsUnknownStatus(t *testing.T) {
	svc := NewMapService(&mockVillageReader{}, &mockClaimLister{}, zap.NewNop())
	_, err := svc.Claims(context.Background(), models.ClaimFilter{Status: "vaporized"})
	require.Error(t, err)
}
