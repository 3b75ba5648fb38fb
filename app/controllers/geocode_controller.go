package controllers

import (
	"net/http"
	"time"

	"github.com/client-geomap/app/requests"
	"github.com/client-geomap/app/responses"
	"github.com/client-geomap/app/services"
	"github.com/client-geomap/internal/geocoder"
	"github.com/client-geomap/internal/normalizer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GeocodeController exposes the normalizer, cache and resolver directly
type GeocodeController struct {
	cache    *services.CoordinateCache
	resolver geocoder.Resolver
	logger   *zap.Logger
}

// NewGeocodeController creates the controller
func NewGeocodeController(cache *services.CoordinateCache, resolver geocoder.Resolver, logger *zap.Logger) *GeocodeController {
	return &GeocodeController{
		cache:    cache,
		resolver: resolver,
		logger:   logger,
	}
}

// Normalize POST /v1/geocode/normalize
func (gc *GeocodeController) Normalize(c *gin.Context) {
	var req requests.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	results := make([]responses.NormalizedAddress, len(req.Addresses))
	for i, raw := range req.Addresses {
		results[i] = responses.NormalizedAddress{
			Raw:        raw,
			Normalized: normalizer.Normalize(raw),
			CacheKey:   gc.cache.Key(raw),
		}
	}
	c.JSON(http.StatusOK, responses.NormalizeResponse{Results: results})
}

// Geocode POST /v1/geocode, cache first then the configured resolver
func (gc *GeocodeController) Geocode(c *gin.Context) {
	var req requests.GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	start := time.Now()
	ctx := c.Request.Context()
	resp := responses.GeocodeResponse{
		Address:    req.Address,
		Normalized: normalizer.Normalize(req.Address),
	}

	if !req.SkipCache {
		if coord, ok := gc.cache.Get(ctx, req.Address); ok {
			resp.Found = true
			resp.CacheHit = true
			resp.Coordinate = coord
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	if !gc.resolver.Available() {
		abortWithError(c, http.StatusServiceUnavailable, "RESOLVER_UNAVAILABLE", "no resolver is configured")
		return
	}

	resp.Resolver = gc.resolver.Name()
	if coord, ok := gc.resolver.Resolve(ctx, req.Address); ok {
		resp.Found = true
		resp.Coordinate = coord
	}
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	c.JSON(http.StatusOK, resp)
}

// BatchGeocode POST /v1/geocode/batch returns [{address, lat, lng}] for the
// addresses that could be located, in request order.
func (gc *GeocodeController) BatchGeocode(c *gin.Context) {
	var req requests.BatchGeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	found := make(map[string]float64Pair, len(req.Addresses))
	var misses []string
	for _, a := range req.Addresses {
		if coord, ok := gc.cache.Get(ctx, a); ok {
			found[a] = float64Pair{coord.Lat, coord.Lng}
			continue
		}
		misses = append(misses, a)
	}

	if len(misses) > 0 && gc.resolver.Available() {
		for a, coord := range gc.resolver.ResolveBatch(ctx, misses) {
			found[a] = float64Pair{coord.Lat, coord.Lng}
		}
	}

	items := make([]responses.BatchGeocodeItem, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, a := range req.Addresses {
		p, ok := found[a]
		if !ok || seen[a] {
			continue
		}
		seen[a] = true
		items = append(items, responses.BatchGeocodeItem{Address: a, Lat: p.lat, Lng: p.lng})
	}

	gc.logger.Debug("Batch geocode",
		zap.Int("requested", len(req.Addresses)),
		zap.Int("cache_misses", len(misses)),
		zap.Int("found", len(items)))

	c.JSON(http.StatusOK, items)
}

type float64Pair struct {
	lat, lng float64
}
