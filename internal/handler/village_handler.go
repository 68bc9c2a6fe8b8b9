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

// VillageHandler exposes village registry endpoints.
type VillageHandler struct {
	villages *service.VillageService
}

// NewVillageHandler constructs VillageHandler.
func NewVillageHandler(villages *service.VillageService) *VillageHandler {
	return &VillageHandler{villages: villages}
}

// List godoc
// @Summary List villages
// @Tags Villages
// @Produce json
// @Param state query string false "Filter by state"
// @Param district query string false "Filter by district"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /villages [get]
func (h *VillageHandler) List(c *gin.Context) {
	filter := models.VillageFilter{
		State:    c.Query("state"),
		District: c.Query("district"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}
	villages, err := h.villages.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villages)
}

// Get godoc
// @Summary Get village detail
// @Tags Villages
// @Produce json
// @Param id path string true "Village ID"
// @Success 200 {object} response.Envelope
// @Router /villages/{id} [get]
func (h *VillageHandler) Get(c *gin.Context) {
	village, err := h.villages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, village)
}

// Create godoc
// @Summary Register a village
// @Tags Villages
// @Accept json
// @Produce json
// @Param payload body service.CreateVillageRequest true "Village payload"
// @Success 201 {object} response.Envelope
// @Router /villages [post]
func (h *VillageHandler) Create(c *gin.Context) {
	var req service.CreateVillageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	village, err := h.villages.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, village)
}
