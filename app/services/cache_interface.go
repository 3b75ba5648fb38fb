package services

import (
	"context"
	"sync/atomic"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/internal/normalizer"
	"go.uber.org/zap"
)

// DefaultCachePrefix is prepended to every normalized address key
const DefaultCachePrefix = "geo_cache_"

// CacheStats cache statistics
type CacheStats struct {
	Driver     string  `json:"driver"`
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICoordinateStore is a durable key/value backend for coordinates.
// Keys arrive already prefixed and normalized.
type ICoordinateStore interface {
	// Get returns the stored coordinate for key
	Get(ctx context.Context, key string) (*models.Coordinate, bool, error)

	// Set stores or overwrites key
	Set(ctx context.Context, key string, c models.Coordinate) error

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this store
	Clear(ctx context.Context) error

	// Len counts stored entries
	Len(ctx context.Context) (int64, error)

	// Name identifies the backend in stats and logs
	Name() string

	// Close releases connections
	Close() error
}

// CoordinateCache maps addresses to coordinates. Every lookup and write goes
// through the address normalizer, so addresses that differ only in postal
// prefix, whitespace or unit suffix share one entry.
type CoordinateCache struct {
	store  ICoordinateStore
	prefix string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCoordinateCache wraps store. An empty prefix falls back to DefaultCachePrefix.
func NewCoordinateCache(store ICoordinateStore, prefix string, logger *zap.Logger) *CoordinateCache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &CoordinateCache{
		store:  store,
		prefix: prefix,
		logger: logger,
	}
}

// Key returns the storage key for address, or "" when the address normalizes to nothing
func (cc *CoordinateCache) Key(address string) string {
	normalized := normalizer.Normalize(address)
	if normalized == "" {
		return ""
	}
	return cc.prefix + normalized
}

// Get looks up address. Backend errors count as a miss.
func (cc *CoordinateCache) Get(ctx context.Context, address string) (*models.Coordinate, bool) {
	key := cc.Key(address)
	if key == "" {
		return nil, false
	}

	c, found, err := cc.store.Get(ctx, key)
	if err != nil {
		cc.logger.Warn("Coordinate cache read failed",
			zap.String("driver", cc.store.Name()),
			zap.String("key", key),
			zap.Error(err))
		cc.misses.Add(1)
		return nil, false
	}
	if !found || c == nil {
		cc.misses.Add(1)
		return nil, false
	}

	cc.hits.Add(1)
	return c, true
}

// Put stores c for address. Invalid coordinates and empty keys are ignored.
func (cc *CoordinateCache) Put(ctx context.Context, address string, c models.Coordinate) {
	key := cc.Key(address)
	if key == "" || !c.Valid() {
		return
	}

	if err := cc.store.Set(ctx, key, c); err != nil {
		cc.logger.Warn("Coordinate cache write failed",
			zap.String("driver", cc.store.Name()),
			zap.String("key", key),
			zap.Error(err))
		return
	}

	cc.logger.Debug("Coordinate cached",
		zap.String("key", key),
		zap.Float64("lat", c.Lat),
		zap.Float64("lng", c.Lng))
}

// Delete removes the entry for address
func (cc *CoordinateCache) Delete(ctx context.Context, address string) error {
	key := cc.Key(address)
	if key == "" {
		return nil
	}
	return cc.store.Delete(ctx, key)
}

// Clear drops every entry and resets the counters
func (cc *CoordinateCache) Clear(ctx context.Context) error {
	if err := cc.store.Clear(ctx); err != nil {
		return err
	}
	cc.hits.Store(0)
	cc.misses.Store(0)
	return nil
}

// Stats returns hit/miss counters and the backend size
func (cc *CoordinateCache) Stats(ctx context.Context) (*CacheStats, error) {
	items, err := cc.store.Len(ctx)
	if err != nil {
		return nil, err
	}

	hits := cc.hits.Load()
	misses := cc.misses.Load()
	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return &CacheStats{
		Driver:     cc.store.Name(),
		HitRate:    hitRate,
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: items,
	}, nil
}

// Close closes the backend
func (cc *CoordinateCache) Close() error {
	return cc.store.Close()
}
