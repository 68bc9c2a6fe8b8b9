package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

type mapVillageReader interface {
	List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error)
	FindByID(ctx context.Context, id string) (*models.Village, error)
}

type mapClaimReader interface {
	List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error)
}

// MapService projects villages and claims into GeoJSON feature collections.
// Claims are anchored to their village's coordinates.
type MapService struct {
	villages mapVillageReader
	claims   mapClaimReader
	logger   *zap.Logger
}

// NewMapService constructs the map service.
func NewMapService(villages mapVillageReader, claims mapClaimReader, logger *zap.Logger) *MapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MapService{villages: villages, claims: claims, logger: logger}
}

// Villages returns villages matching the filter as a feature collection.
func (s *MapService) Villages(ctx context.Context, filter models.VillageFilter) (models.FeatureCollection, error) {
	villages, err := s.villages.List(ctx, filter)
	if err != nil {
		return models.FeatureCollection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list villages for map")
	}

	features := make([]models.Feature, 0, len(villages))
	for _, v := range villages {
		features = append(features, models.Feature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"id":                v.ID,
				"name":              v.Name,
				"state":             v.State,
				"district":          v.District,
				"tehsil":            v.Tehsil,
				"total_forest_area": v.TotalForestArea,
			},
			Geometry: models.NewGeoPoint(v.Coordinates),
		})
	}
	return models.NewFeatureCollection(features), nil
}

// Claims returns claims as a feature collection at their village's location.
// Claims whose village no longer resolves are skipped, not errored.
func (s *MapService) Claims(ctx context.Context, filter models.ClaimFilter) (models.FeatureCollection, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return models.FeatureCollection{}, appErrors.Clone(appErrors.ErrValidation, "unknown claim status")
	}
	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return models.FeatureCollection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list claims for map")
	}

	villageCache := map[string]*models.Village{}
	features := make([]models.Feature, 0, len(claims))
	for _, c := range claims {
		village, ok := villageCache[c.VillageID]
		if !ok {
			village, err = s.villages.FindByID(ctx, c.VillageID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					villageCache[c.VillageID] = nil
					continue
				}
				return models.FeatureCollection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve claim village")
			}
			villageCache[c.VillageID] = village
		}
		if village == nil {
			continue
		}
		features = append(features, models.Feature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"id":                c.ID,
				"claim_number":      c.ClaimNumber,
				"beneficiary_name":  c.BeneficiaryName,
				"status":            string(c.Status),
				"claim_type":        string(c.ClaimType),
				"area_claimed":      c.AreaClaimed,
				"ai_recommendation": c.AIRecommendation,
				"ai_confidence":     c.AIConfidence,
				"village_name":      village.Name,
			},
			Geometry: models.NewGeoPoint(village.Coordinates),
		})
	}
	return models.NewFeatureCollection(features), nil
}
