package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fra-connect/atlas-api/internal/models"
)

const (
	claimListMaxLimit     = 1000
	claimListDefaultLimit = 100
)

const claimColumns = `id, claim_number, beneficiary_name, village_id, claim_type, status,
        area_claimed, survey_numbers, documents, ocr_confidence,
        ai_recommendation, ai_confidence, assigned_officer, linked_schemes,
        created_at, updated_at`

// ClaimRepository manages persistence for forest rights claims.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository constructs a ClaimRepository.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// List returns claims matching the provided filters, newest first.
func (r *ClaimRepository) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.VillageID != "" {
		conditions = append(conditions, fmt.Sprintf("village_id = $%d", len(args)+1))
		args = append(args, filter.VillageID)
	}
	if filter.AssignedOfficer != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_officer = $%d", len(args)+1))
		args = append(args, filter.AssignedOfficer)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = claimListDefaultLimit
	}
	if limit > claimListMaxLimit {
		limit = claimListMaxLimit
	}

	query := fmt.Sprintf("SELECT %s FROM claims WHERE %s ORDER BY created_at DESC LIMIT %d",
		claimColumns, strings.Join(conditions, " AND "), limit)

	var claims []models.Claim
	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// FindByID fetches a claim by id.
func (r *ClaimRepository) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	query := fmt.Sprintf("SELECT %s FROM claims WHERE id = $1", claimColumns)
	var claim models.Claim
	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		return nil, err
	}
	return &claim, nil
}

// FindByNumber fetches a claim by its human-readable number.
func (r *ClaimRepository) FindByNumber(ctx context.Context, number string) (*models.Claim, error) {
	query := fmt.Sprintf("SELECT %s FROM claims WHERE claim_number = $1", claimColumns)
	var claim models.Claim
	if err := r.db.GetContext(ctx, &claim, query, number); err != nil {
		return nil, err
	}
	return &claim, nil
}

// Count returns the total number of claims.
func (r *ClaimRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM claims`); err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return total, nil
}

// CountByStatus returns the number of claims in the given status.
func (r *ClaimRepository) CountByStatus(ctx context.Context, status models.ClaimStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM claims WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count claims by status: %w", err)
	}
	return total, nil
}

// Create inserts a new claim record.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now
	if claim.SurveyNumbers == nil {
		claim.SurveyNumbers = pq.StringArray{}
	}
	if claim.Documents == nil {
		claim.Documents = pq.StringArray{}
	}
	if claim.LinkedSchemes == nil {
		claim.LinkedSchemes = pq.StringArray{}
	}
	const query = `INSERT INTO claims (id, claim_number, beneficiary_name, village_id, claim_type, status,
        area_claimed, survey_numbers, documents, ocr_confidence,
        ai_recommendation, ai_confidence, assigned_officer, linked_schemes, created_at, updated_at)
        VALUES (:id, :claim_number, :beneficiary_name, :village_id, :claim_type, :status,
        :area_claimed, :survey_numbers, :documents, :ocr_confidence,
        :ai_recommendation, :ai_confidence, :assigned_officer, :linked_schemes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, claim); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

// UpdateClaimParams defines the mutable fields.
type UpdateClaimParams struct {
	Status          *models.ClaimStatus
	AssignedOfficer *string
	LinkedSchemes   *pq.StringArray
}

// Update persists the provided changes and touches the updated timestamp.
func (r *ClaimRepository) Update(ctx context.Context, id string, params UpdateClaimParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.AssignedOfficer != nil {
		set = append(set, fmt.Sprintf("assigned_officer = $%d", argPos))
		args = append(args, *params.AssignedOfficer)
		argPos++
	}
	if params.LinkedSchemes != nil {
		set = append(set, fmt.Sprintf("linked_schemes = $%d", argPos))
		args = append(args, *params.LinkedSchemes)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE claims SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}
