package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/helpers/utils"
	"github.com/client-geomap/internal/geocoder"
	"go.uber.org/zap"
)

var (
	// ErrCycleInProgress is returned when a cycle is already running
	ErrCycleInProgress = errors.New("resolution cycle already in progress")

	// ErrClientNotFound is returned for an unknown record id
	ErrClientNotFound = errors.New("client not found")
)

// RecordSource supplies the raw client list
type RecordSource interface {
	Fetch(ctx context.Context, url string) ([]models.ClientRecord, error)
}

// ResolutionStats counters of past cycles
type ResolutionStats struct {
	Cycles          int64         `json:"cycles"`
	FailedCycles    int64         `json:"failed_cycles"`
	LastCycleID     string        `json:"last_cycle_id,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	LastDuration    time.Duration `json:"last_duration_ns"`
	LastSubmitted   int           `json:"last_submitted"`
	LastResolved    int           `json:"last_resolved"`
	LastCompletedAt time.Time     `json:"last_completed_at,omitempty"`
}

// ResolutionStatus current state for the admin endpoint
type ResolutionStatus struct {
	Phase     models.Phase    `json:"phase"`
	SourceURL string          `json:"source_url"`
	Records   int             `json:"records"`
	Located   int             `json:"located"`
	Resolver  string          `json:"resolver"`
	Stats     ResolutionStats `json:"stats"`
}

// ResolutionService drives the Idle -> LoadingRecords -> ResolvingCoordinates
// -> Idle cycle. At most one cycle runs at a time; a load requested while a
// cycle is active is dropped.
type ResolutionService struct {
	source    RecordSource
	cache     geocoder.Cache
	resolver  geocoder.Resolver
	publisher Publisher
	batchSize int
	logger    *zap.Logger

	mu        sync.Mutex
	phase     models.Phase
	cycleID   string
	sourceURL string
	published models.Snapshot
	stats     ResolutionStats
}

// NewResolutionService wires the orchestrator
func NewResolutionService(
	source RecordSource,
	cache geocoder.Cache,
	resolver geocoder.Resolver,
	publisher Publisher,
	batchSize int,
	logger *zap.Logger,
) *ResolutionService {
	return &ResolutionService{
		source:    source,
		cache:     cache,
		resolver:  resolver,
		publisher: publisher,
		batchSize: geocoder.ClampBatchSize(batchSize),
		logger:    logger,
		phase:     models.PhaseIdle,
		published: models.Snapshot{Phase: models.PhaseIdle, Records: []models.ClientRecord{}},
	}
}

// SetSourceURL changes the default source
func (s *ResolutionService) SetSourceURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceURL = strings.TrimSpace(url)
}

// SourceURL returns the default source
func (s *ResolutionService) SourceURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURL
}

// Phase returns the current state
func (s *ResolutionService) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the last published snapshot
func (s *ResolutionService) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.published
	snap.Records = models.CloneRecords(snap.Records)
	return snap
}

// Record finds a record of the last published list by id
func (s *ResolutionService) Record(id string) (models.ClientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.published.Records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.ClientRecord{}, ErrClientNotFound
}

// Status returns phase and counters
func (s *ResolutionService) Status() ResolutionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolver := ""
	if s.resolver != nil {
		resolver = s.resolver.Name()
	}
	return ResolutionStatus{
		Phase:     s.phase,
		SourceURL: s.sourceURL,
		Records:   len(s.published.Records),
		Located:   s.published.Located(),
		Resolver:  resolver,
		Stats:     s.stats,
	}
}

// Trigger starts a cycle in the background. It returns false when the
// request was dropped because a cycle is already running. An empty url
// uses the configured source.
func (s *ResolutionService) Trigger(url string) bool {
	cycleID, url, ok := s.begin(url)
	if !ok {
		return false
	}
	go s.run(context.Background(), cycleID, url)
	return true
}

// Load runs one cycle synchronously. It returns ErrCycleInProgress when
// another cycle is active, and the fetch error when the source failed.
func (s *ResolutionService) Load(ctx context.Context, url string) error {
	cycleID, url, ok := s.begin(url)
	if !ok {
		return ErrCycleInProgress
	}
	return s.run(ctx, cycleID, url)
}

// begin is the single-flight guard: Idle -> LoadingRecords, atomically
func (s *ResolutionService) begin(url string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseIdle {
		s.logger.Debug("Load dropped, cycle in progress",
			zap.String("cycle_id", s.cycleID),
			zap.String("phase", string(s.phase)))
		return "", "", false
	}

	url = strings.TrimSpace(url)
	if url == "" {
		url = s.sourceURL
	} else {
		s.sourceURL = url
	}

	s.cycleID = utils.NewCycleID()
	s.phase = models.PhaseLoadingRecords
	s.publishLocked(s.published.Records)
	return s.cycleID, url, true
}

func (s *ResolutionService) run(ctx context.Context, cycleID, url string) (err error) {
	start := time.Now()
	logger := s.logger.With(zap.String("cycle_id", cycleID))

	var submitted, resolved int
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolution cycle panic: %v", r)
			logger.Error("Resolution cycle crashed", zap.Any("panic", r))
			s.abort()
		}
		s.record(cycleID, start, submitted, resolved, err)
	}()

	logger.Info("Resolution cycle started", zap.String("source_url", url))

	records, err := s.source.Fetch(ctx, url)
	if err != nil {
		logger.Error("Record source fetch failed", zap.String("source_url", url), zap.Error(err))
		s.abort()
		return fmt.Errorf("loading records: %w", err)
	}

	working := models.CloneRecords(records)
	cacheHits := 0
	for i := range working {
		if working[i].HasCoordinate() || working[i].Address == "" {
			continue
		}
		if c, ok := s.cache.Get(ctx, working[i].Address); ok {
			working[i] = working[i].WithCoordinate(*c)
			cacheHits++
		}
	}

	pending := unresolvedAddresses(working, s.batchSize)
	submitted = len(pending)

	logger.Info("Records loaded",
		zap.Int("records", len(working)),
		zap.Int("cache_hits", cacheHits),
		zap.Int("pending", len(pending)))

	if len(pending) == 0 {
		s.transition(models.PhaseIdle, working)
		logger.Info("Resolution cycle finished, nothing to resolve", zap.Duration("duration", time.Since(start)))
		return nil
	}

	s.transition(models.PhaseResolvingCoordinates, working)

	found := s.resolver.ResolveBatch(ctx, pending)
	resolved = len(found)

	merged := mergeCoordinates(working, found)
	s.transition(models.PhaseIdle, merged)

	logger.Info("Resolution cycle finished",
		zap.Int("submitted", len(pending)),
		zap.Int("resolved", len(found)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// transition moves to phase and publishes records with the matching flags
func (s *ResolutionService) transition(phase models.Phase, records []models.ClientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = phase
	s.publishLocked(records)
}

// abort returns to Idle and republishes the last list with cleared flags
func (s *ResolutionService) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = models.PhaseIdle
	s.publishLocked(s.published.Records)
}

func (s *ResolutionService) publishLocked(records []models.ClientRecord) {
	snap := models.Snapshot{
		CycleID:                s.cycleID,
		Phase:                  s.phase,
		Records:                models.CloneRecords(records),
		IsLoadingRecords:       s.phase == models.PhaseLoadingRecords,
		IsResolvingCoordinates: s.phase == models.PhaseResolvingCoordinates,
		PublishedAt:            time.Now(),
	}
	s.published = snap

	if s.publisher != nil {
		out := snap
		out.Records = models.CloneRecords(snap.Records)
		s.publisher.Publish(out)
	}
}

func (s *ResolutionService) record(cycleID string, start time.Time, submitted, resolved int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Cycles++
	s.stats.LastCycleID = cycleID
	s.stats.LastDuration = time.Since(start)
	s.stats.LastSubmitted = submitted
	s.stats.LastResolved = resolved
	s.stats.LastCompletedAt = time.Now()
	s.stats.LastError = ""
	if err != nil {
		s.stats.FailedCycles++
		s.stats.LastError = err.Error()
	}
}

// unresolvedAddresses lists distinct non-empty addresses still lacking a
// coordinate, in record order, capped at limit
func unresolvedAddresses(records []models.ClientRecord, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if r.HasCoordinate() || r.Address == "" {
			continue
		}
		if _, ok := seen[r.Address]; ok {
			continue
		}
		seen[r.Address] = struct{}{}
		out = append(out, r.Address)
		if len(out) == limit {
			break
		}
	}
	return out
}

// mergeCoordinates attaches found coordinates by exact address match
func mergeCoordinates(records []models.ClientRecord, found map[string]models.Coordinate) []models.ClientRecord {
	merged := models.CloneRecords(records)
	if len(found) == 0 {
		return merged
	}
	for i := range merged {
		if merged[i].HasCoordinate() {
			continue
		}
		if c, ok := found[merged[i].Address]; ok {
			merged[i] = merged[i].WithCoordinate(c)
		}
	}
	return merged
}
