package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

// AI recommendation thresholds from the mocked decision rule.
const (
	aiApprovalAreaLimit   = 4.0
	aiApproveConfidence   = 0.85
	aiReviewConfidence    = 0.65
	createdOCRConfidence  = 0.92
	claimNumberSeqPadding = "%s-%d-%06d"
)

type claimRepository interface {
	List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error)
	FindByID(ctx context.Context, id string) (*models.Claim, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, claim *models.Claim) error
	Update(ctx context.Context, id string, params repository.UpdateClaimParams) error
}

type analyticsInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// CreateClaimRequest holds payload for filing claims.
type CreateClaimRequest struct {
	BeneficiaryName string   `json:"beneficiary_name" validate:"required"`
	VillageID       string   `json:"village_id" validate:"required"`
	ClaimType       string   `json:"claim_type" validate:"required"`
	AreaClaimed     float64  `json:"area_claimed" validate:"gt=0"`
	SurveyNumbers   []string `json:"survey_numbers"`
}

// UpdateClaimRequest holds a partial claim update.
type UpdateClaimRequest struct {
	Status          *string   `json:"status,omitempty"`
	AssignedOfficer *string   `json:"assigned_officer,omitempty"`
	LinkedSchemes   *[]string `json:"linked_schemes,omitempty"`
}

// ClaimService handles claim use-cases: filing with generated claim numbers
// and mocked AI scoring, listing and partial updates.
type ClaimService struct {
	repo         claimRepository
	analytics    analyticsInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	numberPrefix string
}

// NewClaimService constructs the claim service.
func NewClaimService(repo claimRepository, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger, numberPrefix string) *ClaimService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if numberPrefix == "" {
		numberPrefix = "FRA"
	}
	return &ClaimService{repo: repo, analytics: analytics, validator: validate, logger: logger, numberPrefix: numberPrefix}
}

// List returns claims matching the filter.
func (s *ClaimService) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown claim status %q", filter.Status))
	}
	claims, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list claims")
	}
	return claims, nil
}

// Get returns one claim.
func (s *ClaimService) Get(ctx context.Context, id string) (*models.Claim, error) {
	claim, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load claim")
	}
	return claim, nil
}

// Create files a new claim. The claim number is derived from the current
// claim count; this read-then-insert is deliberately not atomic to stay
// compatible with the upstream behaviour, so concurrent creations can race
// to the same number. The AI recommendation is fixed at creation from the
// claimed-area threshold rule and never recomputed.
func (s *ClaimService) Create(ctx context.Context, req CreateClaimRequest) (*models.Claim, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid claim payload")
	}
	claimType := models.ClaimType(req.ClaimType)
	if !claimType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown claim type %q", req.ClaimType))
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive claim number")
	}
	claimNumber := fmt.Sprintf(claimNumberSeqPadding, s.numberPrefix, time.Now().Year(), count+1)

	recommendation := "approve"
	confidence := aiApproveConfidence
	if req.AreaClaimed >= aiApprovalAreaLimit {
		recommendation = "review"
		confidence = aiReviewConfidence
	}

	claim := &models.Claim{
		ClaimNumber:      claimNumber,
		BeneficiaryName:  req.BeneficiaryName,
		VillageID:        req.VillageID,
		ClaimType:        claimType,
		Status:           models.ClaimStatusPending,
		AreaClaimed:      req.AreaClaimed,
		SurveyNumbers:    pq.StringArray(req.SurveyNumbers),
		OCRConfidence:    createdOCRConfidence,
		AIRecommendation: recommendation,
		AIConfidence:     confidence,
	}
	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create claim")
	}
	s.invalidateAnalytics(ctx)
	return claim, nil
}

// Update applies a partial update; only explicitly provided fields change.
func (s *ClaimService) Update(ctx context.Context, id string, req UpdateClaimRequest) (*models.Claim, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var params repository.UpdateClaimParams
	if req.Status != nil {
		status := models.ClaimStatus(*req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown claim status %q", *req.Status))
		}
		params.Status = &status
	}
	params.AssignedOfficer = req.AssignedOfficer
	if req.LinkedSchemes != nil {
		schemes := pq.StringArray(*req.LinkedSchemes)
		params.LinkedSchemes = &schemes
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update claim")
	}
	s.invalidateAnalytics(ctx)
	return s.Get(ctx, id)
}

func (s *ClaimService) invalidateAnalytics(ctx context.Context) {
	if s.analytics != nil {
		s.analytics.InvalidateCache(ctx)
	}
}
