package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

type mockClaimRepo struct {
	claims map[string]models.Claim
	seq    int
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{claims: make(map[string]models.Claim)}
}

func (m *mockClaimRepo) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	out := make([]models.Claim, 0, len(m.claims))
	for _, c := range m.claims {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.VillageID != "" && c.VillageID != filter.VillageID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockClaimRepo) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	if c, ok := m.claims[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClaimRepo) Count(ctx context.Context) (int, error) {
	return len(m.claims), nil
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	m.seq++
	claim.ID = fmt.Sprintf("claim-%d", m.seq)
	m.claims[claim.ID] = *claim
	return nil
}

func (m *mockClaimRepo) Update(ctx context.Context, id string, params repository.UpdateClaimParams) error {
	c, ok := m.claims[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		c.Status = *params.Status
	}
	if params.AssignedOfficer != nil {
		c.AssignedOfficer = params.AssignedOfficer
	}
	if params.LinkedSchemes != nil {
		c.LinkedSchemes = *params.LinkedSchemes
	}
	m.claims[id] = c
	return nil
}

type mockInvalidator struct{ calls int }

func (m *mockInvalidator) InvalidateCache(ctx context.Context) { m.calls++ }

func TestClaimServiceCreateNumbersSequentially(t *testing.T) {
	repo := newMockClaimRepo()
	svc := NewClaimService(repo, nil, validator.New(), zap.NewNop(), "FRA")

	first, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "Ramesh Kumar",
		VillageID:       "village-1",
		ClaimType:       "Individual Forest Rights",
		AreaClaimed:     2.5,
	})
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("FRA-%d-000001", year), first.ClaimNumber)
	assert.Regexp(t, regexp.MustCompile(`^FRA-\d{4}-\d{6}$`), first.ClaimNumber)
	assert.Equal(t, models.ClaimStatusPending, first.Status)
	assert.Equal(t, 0.92, first.OCRConfidence)

	second, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "Sita Devi",
		VillageID:       "village-1",
		ClaimType:       "Community Forest Rights",
		AreaClaimed:     1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FRA-%d-000002", year), second.ClaimNumber)
}

func TestClaimServiceCreateAppliesAreaRule(t *testing.T) {
	repo := newMockClaimRepo()
	svc := NewClaimService(repo, nil, validator.New(), zap.NewNop(), "FRA")

	small, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "A", VillageID: "v", ClaimType: "Individual Forest Rights", AreaClaimed: 3.99,
	})
	require.NoError(t, err)
	assert.Equal(t, "approve", small.AIRecommendation)
	assert.Equal(t, 0.85, small.AIConfidence)

	large, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "B", VillageID: "v", ClaimType: "Community Rights", AreaClaimed: 4.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "review", large.AIRecommendation)
	assert.Equal(t, 0.65, large.AIConfidence)
}

func TestClaimServiceCreateValidation(t *testing.T) {
	repo := newMockClaimRepo()
	svc := NewClaimService(repo, nil, validator.New(), zap.NewNop(), "FRA")

	_, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "A", VillageID: "v", ClaimType: "IFR", AreaClaimed: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateClaimRequest{
		VillageID: "v", ClaimType: "Individual Forest Rights", AreaClaimed: 1,
	})
	require.Error(t, err)
	assert.Empty(t, repo.claims)
}

func TestClaimServiceUpdateInvalidatesAnalytics(t *testing.T) {
	repo := newMockClaimRepo()
	inv := &mockInvalidator{}
	svc := NewClaimService(repo, inv, validator.New(), zap.NewNop(), "FRA")

	claim, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "A", VillageID: "v", ClaimType: "Individual Forest Rights", AreaClaimed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	approved := "approved"
	officer := "officer-7"
	updated, err := svc.Update(context.Background(), claim.ID, UpdateClaimRequest{Status: &approved, AssignedOfficer: &officer})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, updated.Status)
	require.NotNil(t, updated.AssignedOfficer)
	assert.Equal(t, "officer-7", *updated.AssignedOfficer)
	assert.Equal(t, 2, inv.calls)
}

func TestClaimServiceUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newMockClaimRepo()
	svc := NewClaimService(repo, nil, validator.New(), zap.NewNop(), "FRA")

	claim, err := svc.Create(context.Background(), CreateClaimRequest{
		BeneficiaryName: "A", VillageID: "v", ClaimType: "Individual Forest Rights", AreaClaimed: 1,
	})
	require.NoError(t, err)

	bogus := "teleported"
	_, err = svc.Update(context.Background(), claim.ID, UpdateClaimRequest{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, models.ClaimStatusPending, repo.claims[claim.ID].Status)
}

func TestClaimServiceGetNotFound(t *testing.T) {
	svc := NewClaimService(newMockClaimRepo(), nil, validator.New(), zap.NewNop(), "FRA")
	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
