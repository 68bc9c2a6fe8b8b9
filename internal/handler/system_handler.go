package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/fra-connect/atlas-api/internal/service"
	"github.com/fra-connect/atlas-api/pkg/response"
)

const welcomeMessage = "FRA-Connect API - Forest Rights Atlas & Decision Support System"

// SystemHandler exposes service-level endpoints: welcome banner, health,
// readiness, Prometheus scrape and mock data seeding.
type SystemHandler struct {
	db      *sqlx.DB
	cache   *redis.Client
	seeder  *service.SeedService
	metrics *service.MetricsService
}

// NewSystemHandler constructs SystemHandler.
func NewSystemHandler(db *sqlx.DB, cache *redis.Client, seeder *service.SeedService, metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{db: db, cache: cache, seeder: seeder, metrics: metrics}
}

// Root godoc
// @Summary API welcome banner
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// Health godoc
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe checking backing stores
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	} else {
		checks["database"] = "not configured"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()).Err(); err != nil {
			checks["cache"] = err.Error()
		}
	} else {
		checks["cache"] = "disabled"
	}

	c.JSON(status, checks)
}

// Metrics serves the Prometheus scrape endpoint.
func (h *SystemHandler) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// GenerateMockData godoc
// @Summary Seed fixture villages and claims
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mock-data/generate [post]
func (h *SystemHandler) GenerateMockData(c *gin.Context) {
	if err := h.seeder.Generate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Mock data generated successfully"})
}
