package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

type villageRepository interface {
	List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error)
	FindByID(ctx context.Context, id string) (*models.Village, error)
	Create(ctx context.Context, village *models.Village) error
}

// CreateVillageRequest holds payload for registering villages.
type CreateVillageRequest struct {
	Name            string             `json:"name" validate:"required"`
	State           string             `json:"state" validate:"required"`
	District        string             `json:"district" validate:"required"`
	Tehsil          string             `json:"tehsil"`
	Coordinates     models.Coordinates `json:"coordinates"`
	TotalForestArea float64            `json:"total_forest_area" validate:"gte=0"`
}

// VillageService handles village registry use-cases.
type VillageService struct {
	repo      villageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVillageService constructs the village service.
func NewVillageService(repo villageRepository, validate *validator.Validate, logger *zap.Logger) *VillageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VillageService{repo: repo, validator: validate, logger: logger}
}

// List returns villages matching the filter.
func (s *VillageService) List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error) {
	villages, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list villages")
	}
	return villages, nil
}

// Get returns one village.
func (s *VillageService) Get(ctx context.Context, id string) (*models.Village, error) {
	village, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "village not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load village")
	}
	return village, nil
}

// Create registers a new village.
func (s *VillageService) Create(ctx context.Context, req CreateVillageRequest) (*models.Village, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid village payload")
	}
	village := &models.Village{
		Name:            req.Name,
		State:           req.State,
		District:        req.District,
		Tehsil:          req.Tehsil,
		Coordinates:     req.Coordinates,
		TotalForestArea: req.TotalForestArea,
	}
	if err := s.repo.Create(ctx, village); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create village")
	}
	return village, nil
}
