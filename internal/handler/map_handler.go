package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fra-connect/atlas-api/internal/models"
	"github.com/fra-connect/atlas-api/internal/service"
	"github.com/fra-connect/atlas-api/pkg/response"
)

// MapHandler exposes GeoJSON projections for the atlas frontend. Payloads
// are raw feature collections, not wrapped in the response envelope, so
// they can be fed straight into mapping libraries.
type MapHandler struct {
	maps *service.MapService
}

// NewMapHandler constructs MapHandler.
func NewMapHandler(maps *service.MapService) *MapHandler {
	return &MapHandler{maps: maps}
}

// Villages godoc
// @Summary Villages as GeoJSON
// @Tags Map
// @Produce json
// @Param state query string false "Filter by state"
// @Param district query string false "Filter by district"
// @Success 200 {object} models.FeatureCollection
// @Router /map/villages [get]
func (h *MapHandler) Villages(c *gin.Context) {
	collection, err := h.maps.Villages(c.Request.Context(), models.VillageFilter{
		State:    c.Query("state"),
		District: c.Query("district"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// Claims godoc
// @Summary Claims as GeoJSON anchored at their village
// @Tags Map
// @Produce json
// @Param status query string false "Filter by status"
// @Param village_id query string false "Filter by village"
// @Success 200 {object} models.FeatureCollection
// @Router /map/claims [get]
func (h *MapHandler) Claims(c *gin.Context) {
	collection, err := h.maps.Claims(c.Request.Context(), models.ClaimFilter{
		Status:    models.ClaimStatus(c.Query("status")),
		VillageID: c.Query("village_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}
