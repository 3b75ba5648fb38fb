package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/internal/normalizer"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NominatimConfig rule-based resolver settings
type NominatimConfig struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string
	CountryCodes   string
	RateLimit      time.Duration // minimum spacing between requests, 0 disables
	MinTokens      int           // shortest query tried by the truncation fallback
	Timeout        time.Duration
}

// NominatimResolver queries a Nominatim-compatible free-text geocoder one
// address at a time, shortening the query from the end until it gets a hit.
type NominatimResolver struct {
	config     NominatimConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	logger     *zap.Logger
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimResolver creates the resolver. cache may be nil.
func NewNominatimResolver(config NominatimConfig, cache Cache, logger *zap.Logger) *NominatimResolver {
	if config.BaseURL == "" {
		config.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if config.UserAgent == "" {
		config.UserAgent = "client-geomap/1.0"
	}
	if config.AcceptLanguage == "" {
		config.AcceptLanguage = "ko-KR,ko;q=0.9"
	}
	if config.MinTokens <= 0 {
		config.MinTokens = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if cache == nil {
		cache = noopCache{}
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Every(config.RateLimit)
	}

	return &NominatimResolver{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		cache:   cache,
		logger:  logger,
	}
}

// Name strategy name
func (r *NominatimResolver) Name() string {
	return "nominatim"
}

// Available is always true, the public service needs no credentials
func (r *NominatimResolver) Available() bool {
	return true
}

// Resolve normalizes address and walks the truncation chain. Every step
// failure is treated as "no result"; the chain stops at the first hit.
func (r *NominatimResolver) Resolve(ctx context.Context, address string) (*models.Coordinate, bool) {
	normalized := normalizer.Normalize(address)
	if normalized == "" {
		return nil, false
	}

	tokens := normalizer.Tokens(normalized)
	for n := len(tokens); n > 0; n-- {
		if n < len(tokens) && n < r.config.MinTokens {
			break
		}

		query := strings.Join(tokens[:n], " ")
		c, err := r.search(ctx, query)
		if err != nil {
			r.logger.Warn("Nominatim lookup failed",
				zap.String("query", query),
				zap.Error(err))
		}
		if c != nil {
			r.cache.Put(ctx, address, *c)
			r.logger.Debug("Nominatim resolved",
				zap.String("address", address),
				zap.String("query", query),
				zap.Int("dropped_tokens", len(tokens)-n))
			return c, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
	}

	return nil, false
}

// ResolveBatch resolves each distinct address sequentially; the rate limiter
// spaces the requests.
func (r *NominatimResolver) ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate {
	result := make(map[string]models.Coordinate)
	for _, address := range addresses {
		if _, done := result[address]; done {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if c, ok := r.Resolve(ctx, address); ok {
			result[address] = *c
		}
	}
	return result
}

// search runs one request. A nil coordinate with nil error means "no result".
func (r *NominatimResolver) search(ctx context.Context, query string) (*models.Coordinate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")
	if r.config.CountryCodes != "" {
		params.Set("countrycodes", r.config.CountryCodes)
	}

	endpoint := strings.TrimRight(r.config.BaseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.config.UserAgent)
	req.Header.Set("Accept-Language", r.config.AcceptLanguage)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return nil, fmt.Errorf("malformed coordinate %q,%q", results[0].Lat, results[0].Lon)
	}

	c := models.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return nil, fmt.Errorf("coordinate out of range %v", c)
	}
	return &c, nil
}
