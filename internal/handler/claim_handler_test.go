package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/repository"
	"github.com/fra-connect/atlas-api/internal/service"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeClaimRepo struct {
	claims map[string]models.Claim
	seq    int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[string]models.Claim)}
}

func (f *fakeClaimRepo) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	out := make([]models.Claim, 0, len(f.claims))
	for _, c := range f.claims {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClaimRepo) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	if c, ok := f.claims[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClaimRepo) Count(ctx context.Context) (int, error) { return len(f.claims), nil }

func (f *fakeClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	f.seq++
	claim.ID = fmt.Sprintf("claim-%d", f.seq)
	f.claims[claim.ID] = *claim
	return nil
}

func (f *fakeClaimRepo) Update(ctx context.Context, id string, params repository.UpdateClaimParams) error {
	c, ok := f.claims[id]
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
	f.claims[id] = c
	return nil
}

func newClaimRouter(repo *fakeClaimRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewClaimService(repo, nil, validator.New(), zap.NewNop(), "FRA")
	h := NewClaimHandler(svc)

	r := gin.New()
	r.GET("/claims", h.List)
	r.POST("/claims", h.Create)
	r.GET("/claims/:id", h.Get)
	r.PUT("/claims/:id", h.Update)
	return r
}

func TestClaimHandlerCreate(t *testing.T) {
	repo := newFakeClaimRepo()
	r := newClaimRouter(repo)

	body := `{"beneficiary_name":"Ramesh Kumar","village_id":"village-1","claim_type":"Individual Forest Rights","area_claimed":2.5,"survey_numbers":["101/1"]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/claims", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var claim models.Claim
	require.NoError(t, json.Unmarshal(env.Data, &claim))
	assert.Equal(t, "pending", string(claim.Status))
	assert.Equal(t, "approve", claim.AIRecommendation)
	assert.Contains(t, claim.ClaimNumber, "FRA-")
}

func TestClaimHandlerCreateRejectsBadPayload(t *testing.T) {
	r := newClaimRouter(newFakeClaimRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/claims", strings.NewReader(`{"area_claimed":-1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimHandlerGetNotFound(t *testing.T) {
	r := newClaimRouter(newFakeClaimRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/claims/missing", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "NOT_FOUND", env.Error["code"])
}

func TestClaimHandlerListFiltersStatus(t *testing.T) {
	repo := newFakeClaimRepo()
	repo.claims["c1"] = models.Claim{ID: "c1", Status: models.ClaimStatusPending}
	repo.claims["c2"] = models.Claim{ID: "c2", Status: models.ClaimStatusApproved}
	r := newClaimRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/claims?status=approved", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var claims []models.Claim
	require.NoError(t, json.Unmarshal(env.Data, &claims))
	require.Len(t, claims, 1)
	assert.Equal(t, "c2", claims[0].ID)
}

func TestClaimHandlerListRejectsUnknownStatus(t *testing.T) {
	r := newClaimRouter(newFakeClaimRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/claims?status=vanished", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimHandlerUpdate(t *testing.T) {
	repo := newFakeClaimRepo()
	repo.claims["c1"] = models.Claim{ID: "c1", Status: models.ClaimStatusPending}
	r := newClaimRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/claims/c1", strings.NewReader(`{"status":"approved","linked_schemes":["PM-KISAN"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ClaimStatusApproved, repo.claims["c1"].Status)
	assert.Equal(t, []string{"PM-KISAN"}, []string(repo.claims["c1"].LinkedSchemes))
}
