package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/fra-connect/atlas-api/internal/models"
)

func claimRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "claim_number", "beneficiary_name", "village_id", "claim_type", "status",
		"area_claimed", "survey_numbers", "documents", "ocr_confidence",
		"ai_recommendation", "ai_confidence", "assigned_officer", "linked_schemes",
		"created_at", "updated_at",
	})
}

func TestClaimRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClaimRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO claims")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	claim := &models.Claim{
		ClaimNumber:     "FRA-2026-000001",
		BeneficiaryName: "Ramesh Kumar",
		VillageID:       "village-1",
		ClaimType:       models.ClaimTypeIFR,
		Status:          models.ClaimStatusPending,
		AreaClaimed:     2.5,
	}
	require.NoError(t, repo.Create(context.Background(), claim))
	require.NotEmpty(t, claim.ID)
	require.NotNil(t, claim.SurveyNumbers)
	require.NotNil(t, claim.Documents)
	require.NotNil(t, claim.LinkedSchemes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClaimRepository(db)
	rows := claimRows().AddRow(
		"claim-1", "FRA-2026-000001", "Ramesh Kumar", "village-1", "Individual Forest Rights", "pending",
		2.5, pq.StringArray{"101/1"}, pq.StringArray{}, 0.92,
		"approve", 0.85, nil, pq.StringArray{}, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, claim_number")).
		WithArgs("pending", "village-1").
		WillReturnRows(rows)

	claims, err := repo.List(context.Background(), models.ClaimFilter{
		Status:    models.ClaimStatusPending,
		VillageID: "village-1",
	})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, "FRA-2026-000001", claims[0].ClaimNumber)
	require.Equal(t, []string{"101/1"}, []string(claims[0].SurveyNumbers))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClaimRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM claims")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, total)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM claims WHERE status = $1")).
		WithArgs(models.ClaimStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	pending, err := repo.CountByStatus(context.Background(), models.ClaimStatusPending)
	require.NoError(t, err)
	require.Equal(t, 3, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepositoryUpdateSparseSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClaimRepository(db)
	status := models.ClaimStatusApproved
	schemes := pq.StringArray{"PM-KISAN"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE claims SET status = $1, linked_schemes = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(status, schemes, sqlmock.AnyArg(), "claim-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "claim-1", UpdateClaimParams{
		Status:        &status,
		LinkedSchemes: &schemes,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
