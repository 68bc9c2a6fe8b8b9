package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fra-connect/atlas-api/internal/service"
	"github.com/fra-connect/atlas-api/pkg/response"
)

// AnalyticsHandler exposes the dashboard summary endpoint.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Dashboard analytics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, cached, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, map[string]interface{}{"cached": cached})
}
