package controllers

import (
	"net/http"
	"time"

	"github.com/client-geomap/app/requests"
	"github.com/client-geomap/app/responses"
	"github.com/client-geomap/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version reported by health and docs endpoints
const Version = "1.0.0"

// AdminController cache maintenance, status and health
type AdminController struct {
	cache            *services.CoordinateCache
	resolution       *services.ResolutionService
	hub              *services.SnapshotHub
	geminiConfigured bool
	startTime        time.Time
	logger           *zap.Logger
}

// NewAdminController creates the controller
func NewAdminController(
	cache *services.CoordinateCache,
	resolution *services.ResolutionService,
	hub *services.SnapshotHub,
	geminiConfigured bool,
	logger *zap.Logger,
) *AdminController {
	return &AdminController{
		cache:            cache,
		resolution:       resolution,
		hub:              hub,
		geminiConfigured: geminiConfigured,
		startTime:        time.Now(),
		logger:           logger,
	}
}

// CacheStats GET /v1/admin/cache/stats
func (ac *AdminController) CacheStats(c *gin.Context) {
	stats, err := ac.cache.Stats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Failed to read cache stats", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "CACHE_ERROR", "failed to read cache stats: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearCache DELETE /v1/admin/cache
func (ac *AdminController) ClearCache(c *gin.Context) {
	if err := ac.cache.Clear(c.Request.Context()); err != nil {
		ac.logger.Error("Failed to clear cache", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "CACHE_ERROR", "failed to clear cache: "+err.Error())
		return
	}

	ac.logger.Info("Coordinate cache cleared by admin request")
	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "coordinate cache cleared",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// DeleteCacheEntries POST /v1/admin/cache/delete
func (ac *AdminController) DeleteCacheEntries(c *gin.Context) {
	var req requests.CacheDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	deleted := 0
	for _, a := range req.Addresses {
		if err := ac.cache.Delete(c.Request.Context(), a); err != nil {
			abortWithError(c, http.StatusInternalServerError, "CACHE_ERROR", "failed to delete entry: "+err.Error())
			return
		}
		deleted++
	}
	c.JSON(http.StatusOK, responses.CacheDeleteResponse{Deleted: deleted})
}

// Status GET /v1/admin/status
func (ac *AdminController) Status(c *gin.Context) {
	stats, err := ac.cache.Stats(c.Request.Context())
	if err != nil {
		ac.logger.Warn("Cache stats unavailable", zap.Error(err))
		stats = nil
	}

	c.JSON(http.StatusOK, responses.AdminStatusResponse{
		Resolution:       ac.resolution.Status(),
		Cache:            stats,
		Subscribers:      ac.hub.Subscribers(),
		GeminiConfigured: ac.geminiConfigured,
		Uptime:           time.Since(ac.startTime).Round(time.Second).String(),
	})
}

// HealthCheck /health, /ready, /live
func (ac *AdminController) HealthCheck(c *gin.Context) {
	cacheStatus := "healthy"
	if _, err := ac.cache.Stats(c.Request.Context()); err != nil {
		cacheStatus = "unhealthy"
	}

	status := http.StatusOK
	overall := "healthy"
	if cacheStatus != "healthy" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, responses.HealthCheckResponse{
		Status:    overall,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(ac.startTime).String(),
		Version:   Version,
		Services: map[string]string{
			"cache":      cacheStatus,
			"resolution": string(ac.resolution.Phase()),
		},
	})
}
