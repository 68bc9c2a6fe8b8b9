package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fra-connect/atlas-api/internal/models"
)

const (
	villageListMaxLimit     = 1000
	villageListDefaultLimit = 100
)

const villageColumns = `id, name, state, district, tehsil, coordinates, total_forest_area, created_at`

// VillageRepository manages persistence for village records.
type VillageRepository struct {
	db *sqlx.DB
}

// NewVillageRepository constructs a VillageRepository.
func NewVillageRepository(db *sqlx.DB) *VillageRepository {
	return &VillageRepository{db: db}
}

// List returns villages matching the provided filters.
func (r *VillageRepository) List(ctx context.Context, filter models.VillageFilter) ([]models.Village, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.District != "" {
		conditions = append(conditions, fmt.Sprintf("district = $%d", len(args)+1))
		args = append(args, filter.District)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = villageListDefaultLimit
	}
	if limit > villageListMaxLimit {
		limit = villageListMaxLimit
	}

	query := fmt.Sprintf("SELECT %s FROM villages WHERE %s ORDER BY name ASC LIMIT %d",
		villageColumns, strings.Join(conditions, " AND "), limit)

	var villages []models.Village
	if err := r.db.SelectContext(ctx, &villages, query, args...); err != nil {
		return nil, fmt.Errorf("list villages: %w", err)
	}
	return villages, nil
}

// FindByID fetches a village by id.
func (r *VillageRepository) FindByID(ctx context.Context, id string) (*models.Village, error) {
	query := fmt.Sprintf("SELECT %s FROM villages WHERE id = $1", villageColumns)
	var village models.Village
	if err := r.db.GetContext(ctx, &village, query, id); err != nil {
		return nil, err
	}
	return &village, nil
}

// ExistsByNameAndDistrict checks for an existing village record, used to keep
// seeding idempotent.
func (r *VillageRepository) ExistsByNameAndDistrict(ctx context.Context, name, district string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM villages WHERE name = $1 AND district = $2 LIMIT 1`, name, district)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check village: %w", err)
	}
	return true, nil
}

// Count returns the total number of villages.
func (r *VillageRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM villages`); err != nil {
		return 0, fmt.Errorf("count villages: %w", err)
	}
	return total, nil
}

// Create inserts a new village record.
func (r *VillageRepository) Create(ctx context.Context, village *models.Village) error {
	if village.ID == "" {
		village.ID = uuid.NewString()
	}
	if village.CreatedAt.IsZero() {
		village.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO villages (id, name, state, district, tehsil, coordinates, total_forest_area, created_at)
        VALUES (:id, :name, :state, :district, :tehsil, :coordinates, :total_forest_area, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, village); err != nil {
		return fmt.Errorf("create village: %w", err)
	}
	return nil
}
