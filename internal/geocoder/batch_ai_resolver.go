package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/client-geomap/app/models"
	"go.uber.org/zap"
)

// MaxBatchSize is the most addresses sent in one inference request
const MaxBatchSize = 30

// ClampBatchSize maps n into [1, MaxBatchSize], 0 or less meaning the maximum
func ClampBatchSize(n int) int {
	if n <= 0 || n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// Generator is the inference backend used by BatchAIResolver
type Generator interface {
	Available() bool
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// BatchAIResolver resolves a list of addresses with one inference request
type BatchAIResolver struct {
	generator Generator
	cache     Cache
	batchSize int
	logger    *zap.Logger
}

// NewBatchAIResolver creates the resolver. cache may be nil.
func NewBatchAIResolver(generator Generator, cache Cache, batchSize int, logger *zap.Logger) *BatchAIResolver {
	if cache == nil {
		cache = noopCache{}
	}
	return &BatchAIResolver{
		generator: generator,
		cache:     cache,
		batchSize: ClampBatchSize(batchSize),
		logger:    logger,
	}
}

// Name strategy name
func (r *BatchAIResolver) Name() string {
	return "gemini"
}

// Available reports whether the inference backend has credentials
func (r *BatchAIResolver) Available() bool {
	return r.generator != nil && r.generator.Available()
}

// Resolve is a batch of one
func (r *BatchAIResolver) Resolve(ctx context.Context, address string) (*models.Coordinate, bool) {
	result := r.ResolveBatch(ctx, []string{address})
	c, ok := result[address]
	if !ok {
		return nil, false
	}
	return &c, true
}

// ResolveBatch submits the addresses in one request. Addresses past the batch
// size are ignored; callers are expected to truncate first.
func (r *BatchAIResolver) ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate {
	result := make(map[string]models.Coordinate)

	batch := dedupeNonEmpty(addresses)
	if len(batch) == 0 {
		return result
	}
	if len(batch) > r.batchSize {
		batch = batch[:r.batchSize]
	}
	if !r.Available() {
		r.logger.Warn("Batch AI resolver unavailable, skipping", zap.Int("addresses", len(batch)))
		return result
	}

	text, err := r.generator.GenerateJSON(ctx, buildGeocodePrompt(batch))
	if err != nil {
		r.logger.Warn("Batch AI geocode request failed", zap.Int("addresses", len(batch)), zap.Error(err))
		return result
	}

	triples, err := parseTriples(text)
	if err != nil {
		r.logger.Warn("Batch AI geocode response malformed", zap.Error(err))
		return result
	}

	matcher := newAddressMatcher(batch)
	dropped := 0
	for _, t := range triples {
		original, ok := matcher.match(t.Address)
		if !ok {
			dropped++
			continue
		}
		result[original] = t.Coordinate
		r.cache.Put(ctx, original, t.Coordinate)
	}

	r.logger.Debug("Batch AI geocode done",
		zap.Int("requested", len(batch)),
		zap.Int("resolved", len(result)),
		zap.Int("unmatched", dropped))

	return result
}

func dedupeNonEmpty(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if strings.TrimSpace(a) == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func buildGeocodePrompt(addresses []string) string {
	list, _ := json.Marshal(addresses)

	var sb strings.Builder
	sb.WriteString("You are a geocoding assistant for South Korean business addresses.\n")
	sb.WriteString("For every address in the JSON array below, first clean it: remove the 5-digit postal code, ")
	sb.WriteString("floor/unit/room numbers (층, 호, 동, 단지) and any text in parentheses. ")
	sb.WriteString("Then find the latitude and longitude of the cleaned address.\n")
	sb.WriteString("Respond with a JSON array only, one object per address you could locate: ")
	sb.WriteString(`[{"address": "<the original address exactly as given>", "lat": <number>, "lng": <number>}]`)
	sb.WriteString("\nOmit addresses you cannot locate. Do not invent coordinates.\n\nAddresses:\n")
	sb.Write(list)
	return sb.String()
}

type triple struct {
	Address    string
	Coordinate models.Coordinate
}

type rawTriple struct {
	Address string          `json:"address"`
	Lat     json.RawMessage `json:"lat"`
	Lng     json.RawMessage `json:"lng"`
}

// parseTriples accepts a bare array or {"results": [...]}, optionally inside a
// markdown code fence. Entries without two numeric coordinates are dropped.
func parseTriples(text string) ([]triple, error) {
	text = stripCodeFence(text)

	var raw []rawTriple
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var wrapped struct {
			Results []rawTriple `json:"results"`
		}
		if err2 := json.Unmarshal([]byte(text), &wrapped); err2 != nil {
			return nil, fmt.Errorf("decoding geocode answer: %w", err)
		}
		raw = wrapped.Results
	}

	out := make([]triple, 0, len(raw))
	for _, rt := range raw {
		lat, ok := parseNumber(rt.Lat)
		if !ok {
			continue
		}
		lng, ok := parseNumber(rt.Lng)
		if !ok {
			continue
		}
		c := models.Coordinate{Lat: lat, Lng: lng}
		if !c.Valid() {
			continue
		}
		out = append(out, triple{Address: rt.Address, Coordinate: c})
	}
	return out, nil
}

// parseNumber accepts a JSON number or a numeric string
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
