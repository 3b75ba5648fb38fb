// Package container builds the object graph shared by the server, the
// worker and the CLI.
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/client-geomap/app/config"
	"github.com/client-geomap/app/services"
	"github.com/client-geomap/internal/gemini"
	"github.com/client-geomap/internal/geocoder"
	"github.com/client-geomap/internal/search"
	"github.com/client-geomap/internal/source"
	"go.uber.org/zap"
)

// Container holds every long-lived component
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Cache      *services.CoordinateCache
	Gemini     *gemini.Client
	Nominatim  *geocoder.NominatimResolver
	BatchAI    *geocoder.BatchAIResolver
	Resolver   geocoder.Resolver
	Source     *source.SheetSource
	Hub        *services.SnapshotHub
	Index      *search.ClientIndex // nil unless meilisearch is enabled
	Resolution *services.ResolutionService
	Search     *services.ClientSearchService
	Insights   *services.InsightService

	closers []func() error
}

// New wires the application from cfg
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	store, err := c.newStore(ctx, cfg.Cache.Driver)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing %s cache: %w", cfg.Cache.Driver, err)
	}
	c.Cache = services.NewCoordinateCache(store, cfg.Cache.Prefix, logger)
	c.closers = append(c.closers, c.Cache.Close)

	c.Gemini = gemini.NewClient(gemini.Config{
		BaseURL: cfg.Gemini.URL,
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, logger)

	c.Nominatim = geocoder.NewNominatimResolver(geocoder.NominatimConfig{
		BaseURL:        cfg.Nominatim.URL,
		UserAgent:      cfg.Nominatim.UserAgent,
		AcceptLanguage: cfg.Nominatim.AcceptLanguage,
		CountryCodes:   cfg.Nominatim.CountryCodes,
		RateLimit:      cfg.Nominatim.RateLimit,
		MinTokens:      cfg.Nominatim.MinTokens,
	}, c.Cache, logger)

	c.BatchAI = geocoder.NewBatchAIResolver(c.Gemini, c.Cache, cfg.Resolver.BatchSize, logger)

	switch cfg.Resolver.Strategy {
	case config.StrategyAI:
		c.Resolver = geocoder.NewFallback(c.BatchAI)
	case config.StrategyRule:
		c.Resolver = geocoder.NewFallback(c.Nominatim)
	default:
		c.Resolver = geocoder.NewFallback(c.BatchAI, c.Nominatim)
	}

	c.Source = source.NewSheetSource(cfg.Source.Timeout, logger)
	c.Hub = services.NewSnapshotHub(logger)

	publishers := services.MultiPublisher{c.Hub}
	var index services.ClientIndex
	if cfg.Meilisearch.Enabled {
		ci, err := search.NewClientIndex(search.Config{
			Host:      cfg.Meilisearch.URL,
			APIKey:    cfg.Meilisearch.APIKey,
			IndexName: cfg.Meilisearch.Index,
		}, logger)
		if err != nil {
			logger.Warn("Meilisearch disabled, falling back to in-memory search", zap.Error(err))
		} else {
			c.Index = ci
			index = ci
			publishers = append(publishers, ci)
		}
	}

	c.Resolution = services.NewResolutionService(
		c.Source, c.Cache, c.Resolver, publishers, cfg.Resolver.BatchSize, logger)
	c.Resolution.SetSourceURL(cfg.Source.URL)

	c.Search = services.NewClientSearchService(index, logger)

	c.Insights, err = services.NewInsightService(c.Gemini, cfg.Insights.CacheSize, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Container ready",
		zap.String("cache_driver", store.Name()),
		zap.String("resolver", c.Resolver.Name()),
		zap.Bool("gemini_configured", c.Gemini.Available()),
		zap.Bool("meilisearch", c.Index != nil))

	return c, nil
}

// Close releases connections in reverse order of creation
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
