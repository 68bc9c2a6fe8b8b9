package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/service"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
	"github.com/fra-connect/atlas-api/pkg/response"
)

// ClaimHandler exposes claim endpoints.
type ClaimHandler struct {
	claims *service.ClaimService
}

// NewClaimHandler constructs ClaimHandler.
func NewClaimHandler(claims *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// List godoc
// @Summary List claims
// @Tags Claims
// @Produce json
// @Param status query string false "Filter by status"
// @Param village_id query string false "Filter by village"
// @Param assigned_officer query string false "Filter by assigned officer"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /claims [get]
func (h *ClaimHandler) List(c *gin.Context) {
	filter := models.ClaimFilter{
		Status:          models.ClaimStatus(c.Query("status")),
		VillageID:       c.Query("village_id"),
		AssignedOfficer: c.Query("assigned_officer"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}
	claims, err := h.claims.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claims)
}

// Get godoc
// @Summary Get claim detail
// @Tags Claims
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} response.Envelope
// @Router /claims/{id} [get]
func (h *ClaimHandler) Get(c *gin.Context) {
	claim, err := h.claims.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim)
}

// Create godoc
// @Summary File a new claim
// @Tags Claims
// @Accept json
// @Produce json
// @Param payload body service.CreateClaimRequest true "Claim payload"
// @Success 201 {object} response.Envelope
// @Router /claims [post]
func (h *ClaimHandler) Create(c *gin.Context) {
	var req service.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claim, err := h.claims.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, claim)
}

// Update godoc
// @Summary Update claim status, officer or schemes
// @Tags Claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body service.UpdateClaimRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /claims/{id} [put]
func (h *ClaimHandler) Update(c *gin.Context) {
	var req service.UpdateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claim, err := h.claims.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim)
}
