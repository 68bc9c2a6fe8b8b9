package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

type seedVillageStore interface {
	List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error)
	ExistsByNameAndDistrict(ctx context.Context, name, district string) (bool, error)
	Create(ctx context.Context, village *models.Village) error
}

type seedClaimStore interface {
	FindByNumber(ctx context.Context, claimNumber string) (*models.Claim, error)
	Create(ctx context.Context, claim *models.Claim) error
}

// SeedService generates a small fixed dataset for demos and testing.
// Seeding is idempotent: villages are matched on name+district and claims on
// claim number, so repeated runs insert nothing new.
type SeedService struct {
	villages  seedVillageStore
	claims    seedClaimStore
	analytics analyticsInvalidator
	logger    *zap.Logger
}

// NewSeedService constructs the seed service.
func NewSeedService(villages seedVillageStore, claims seedClaimStore, analytics analyticsInvalidator, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{villages: villages, claims: claims, analytics: analytics, logger: logger}
}

func seedVillages() []models.Village {
	return []models.Village{
		{Name: "Rampur", State: "Madhya Pradesh", District: "Balaghat", Tehsil: "Balaghat",
			Coordinates: models.Coordinates{Lat: 21.8047, Lng: 80.1847}, TotalForestArea: 450.5},
		{Name: "Sundarpur", State: "Madhya Pradesh", District: "Balaghat", Tehsil: "Kirnapur",
			Coordinates: models.Coordinates{Lat: 21.9047, Lng: 80.2847}, TotalForestArea: 320.8},
		{Name: "Vanagram", State: "Chhattisgarh", District: "Korba", Tehsil: "Korba",
			Coordinates: models.Coordinates{Lat: 22.3511, Lng: 82.6897}, TotalForestArea: 280.3},
		{Name: "Forestpur", State: "Chhattisgarh", District: "Korba", Tehsil: "Pali",
			Coordinates: models.Coordinates{Lat: 22.4511, Lng: 82.7897}, TotalForestArea: 410.7},
		{Name: "Tribalnagar", State: "Jharkhand", District: "Ranchi", Tehsil: "Bundu",
			Coordinates: models.Coordinates{Lat: 23.3441, Lng: 85.3096}, TotalForestArea: 375.2},
	}
}

// Generate inserts the fixture villages and three claims attached to the
// first villages on record.
func (s *SeedService) Generate(ctx context.Context) error {
	for _, village := range seedVillages() {
		exists, err := s.villages.ExistsByNameAndDistrict(ctx, village.Name, village.District)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seed village")
		}
		if exists {
			continue
		}
		v := village
		if err := s.villages.Create(ctx, &v); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed village")
		}
		s.logger.Info("seeded village", zap.String("name", v.Name), zap.String("district", v.District))
	}

	villages, err := s.villages.List(ctx, models.VillageFilter{})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list villages for seeding")
	}
	if len(villages) > 3 {
		villages = villages[:3]
	}

	for i, village := range villages {
		claim := seedClaim(i, village.ID)
		existing, err := s.claims.FindByNumber(ctx, claim.ClaimNumber)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seed claim")
		}
		if existing != nil {
			continue
		}
		if err := s.claims.Create(ctx, claim); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed claim")
		}
		s.logger.Info("seeded claim", zap.String("claim_number", claim.ClaimNumber))
	}

	if s.analytics != nil {
		s.analytics.InvalidateCache(ctx)
	}
	return nil
}

func seedClaim(i int, villageID string) *models.Claim {
	claimType := models.ClaimTypeIFR
	recommendation := "approve"
	if i%2 != 0 {
		claimType = models.ClaimTypeCFR
		recommendation = "review"
	}
	status := models.ClaimStatusPending
	schemes := pq.StringArray{}
	switch i {
	case 1:
		status = models.ClaimStatusApproved
		schemes = pq.StringArray{"PM-KISAN"}
	case 2:
		status = models.ClaimStatusUnderReview
	}
	return &models.Claim{
		ClaimNumber:     fmt.Sprintf("FRA-2024-%06d", i+1),
		BeneficiaryName: fmt.Sprintf("Beneficiary %d", i+1),
		VillageID:       villageID,
		ClaimType:       claimType,
		Status:          status,
		AreaClaimed:     2.5 + float64(i)*0.8,
		SurveyNumbers: pq.StringArray{
			fmt.Sprintf("Survey%d/1", i+1),
			fmt.Sprintf("Survey%d/2", i+1),
		},
		OCRConfidence:    0.85 + float64(i)*0.05,
		AIRecommendation: recommendation,
		AIConfidence:     0.80 + float64(i)*0.05,
		LinkedSchemes:    schemes,
	}
}
