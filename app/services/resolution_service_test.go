package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/internal/geocoder"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (p *recordingPublisher) Publish(snap models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
}

func (p *recordingPublisher) all() []models.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Snapshot(nil), p.snaps...)
}

func (p *recordingPublisher) last() models.Snapshot {
	all := p.all()
	return all[len(all)-1]
}

type fakeSource struct {
	mu      sync.Mutex
	records []models.ClientRecord
	err     error
	gate    chan struct{}
	calls   int
}

func (s *fakeSource) Fetch(ctx context.Context, url string) ([]models.ClientRecord, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	records, err := s.records, s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return models.CloneRecords(records), err
}

func (s *fakeSource) set(records []models.ClientRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records, s.err = records, err
}

// fakeResolver resolves addresses listed in known and writes them to cache
type fakeResolver struct {
	mu    sync.Mutex
	known map[string]models.Coordinate
	cache *CoordinateCache
	calls [][]string
	panic bool
}

func (r *fakeResolver) Name() string    { return "fake" }
func (r *fakeResolver) Available() bool { return true }

func (r *fakeResolver) Resolve(ctx context.Context, address string) (*models.Coordinate, bool) {
	got := r.ResolveBatch(ctx, []string{address})
	c, ok := got[address]
	return &c, ok
}

func (r *fakeResolver) ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, append([]string(nil), addresses...))
	if r.panic {
		panic("resolver exploded")
	}
	out := make(map[string]models.Coordinate)
	for _, a := range addresses {
		if c, ok := r.known[a]; ok {
			out[a] = c
			if r.cache != nil {
				r.cache.Put(ctx, a, c)
			}
		}
	}
	return out
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func makeRecords(n int) []models.ClientRecord {
	records := make([]models.ClientRecord, n)
	for i := range records {
		records[i] = models.ClientRecord{
			ID:      fmt.Sprintf("client-%d", i),
			Name:    fmt.Sprintf("상사%d", i),
			Address: fmt.Sprintf("서울 중구 세종대로 %d", 100+i),
		}
	}
	return records
}

func coordFor(i int) models.Coordinate {
	return models.Coordinate{Lat: 37.5 + float64(i)/1000, Lng: 126.9 + float64(i)/1000}
}

type harness struct {
	svc      *ResolutionService
	source   *fakeSource
	resolver *fakeResolver
	cache    *CoordinateCache
	pub      *recordingPublisher
}

func newHarness(records []models.ClientRecord) *harness {
	cache := newMemoryCache()
	source := &fakeSource{records: records}
	resolver := &fakeResolver{known: map[string]models.Coordinate{}, cache: cache}
	pub := &recordingPublisher{}
	svc := NewResolutionService(source, cache, resolver, pub, 30, zap.NewNop())
	svc.SetSourceURL("http://sheet.test/export.csv")
	return &harness{svc: svc, source: source, resolver: resolver, cache: cache, pub: pub}
}

func TestResolution_CacheHitsPublishedBeforeBatch(t *testing.T) {
	records := makeRecords(10)
	h := newHarness(records)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		h.cache.Put(ctx, records[i].Address, coordFor(i))
	}
	for i := 7; i < 10; i++ {
		h.resolver.known[records[i].Address] = coordFor(i)
	}

	require.NoError(t, h.svc.Load(ctx, ""))

	snaps := h.pub.all()
	require.Len(t, snaps, 3)

	assert.True(t, snaps[0].IsLoadingRecords)
	assert.False(t, snaps[0].IsResolvingCoordinates)
	assert.Empty(t, snaps[0].Records)

	partial := snaps[1]
	assert.False(t, partial.IsLoadingRecords)
	assert.True(t, partial.IsResolvingCoordinates)
	assert.Equal(t, models.PhaseResolvingCoordinates, partial.Phase)
	assert.Len(t, partial.Records, 10)
	assert.Equal(t, 7, partial.Located())

	final := snaps[2]
	assert.False(t, final.IsLoadingRecords)
	assert.False(t, final.IsResolvingCoordinates)
	assert.Equal(t, models.PhaseIdle, final.Phase)
	assert.Len(t, final.Records, 10)
	assert.Equal(t, 10, final.Located())

	require.Equal(t, 1, h.resolver.callCount())
	assert.Equal(t, []string{records[7].Address, records[8].Address, records[9].Address}, h.resolver.calls[0])
	assert.Equal(t, models.PhaseIdle, h.svc.Phase())
}

func TestResolution_FullyCachedSkipsResolver(t *testing.T) {
	records := makeRecords(4)
	h := newHarness(records)
	ctx := context.Background()
	for i, r := range records {
		h.cache.Put(ctx, r.Address, coordFor(i))
	}

	require.NoError(t, h.svc.Load(ctx, ""))

	assert.Zero(t, h.resolver.callCount())
	snaps := h.pub.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, models.PhaseIdle, snaps[1].Phase)
	assert.False(t, snaps[1].IsResolvingCoordinates)
	assert.Equal(t, 4, snaps[1].Located())
}

func TestResolution_ReloadDoesNotResubmitCachedAddresses(t *testing.T) {
	records := makeRecords(3)
	h := newHarness(records)
	for i, r := range records {
		h.resolver.known[r.Address] = coordFor(i)
	}
	ctx := context.Background()

	require.NoError(t, h.svc.Load(ctx, ""))
	require.NoError(t, h.svc.Load(ctx, ""))

	assert.Equal(t, 1, h.resolver.callCount())
	first := h.pub.all()[2]
	second := h.pub.last()
	if diff := cmp.Diff(first.Records, second.Records); diff != "" {
		t.Errorf("reload changed records (-first +second):\n%s", diff)
	}
}

func TestResolution_PartialBatchResult(t *testing.T) {
	records := makeRecords(5)
	h := newHarness(records)
	for _, i := range []int{0, 2, 4} {
		h.resolver.known[records[i].Address] = coordFor(i)
	}

	require.NoError(t, h.svc.Load(context.Background(), ""))

	final := h.pub.last()
	require.Len(t, final.Records, 5)
	assert.Equal(t, 3, final.Located())
	assert.Nil(t, final.Records[1].Coordinate)
	assert.Nil(t, final.Records[3].Coordinate)
	assert.Equal(t, coordFor(2), *final.Records[2].Coordinate)

	status := h.svc.Status()
	assert.Empty(t, status.Stats.LastError)
	assert.Equal(t, 5, status.Stats.LastSubmitted)
	assert.Equal(t, 3, status.Stats.LastResolved)
}

func TestResolution_FetchFailureKeepsPreviousList(t *testing.T) {
	records := makeRecords(2)
	h := newHarness(records)
	for i, r := range records {
		h.resolver.known[r.Address] = coordFor(i)
	}
	ctx := context.Background()
	require.NoError(t, h.svc.Load(ctx, ""))
	good := h.pub.last()

	h.source.set(nil, errors.New("sheet unavailable"))
	err := h.svc.Load(ctx, "")
	require.Error(t, err)

	last := h.pub.last()
	assert.False(t, last.IsLoadingRecords)
	assert.False(t, last.IsResolvingCoordinates)
	assert.Equal(t, models.PhaseIdle, last.Phase)
	if diff := cmp.Diff(good.Records, last.Records); diff != "" {
		t.Errorf("previous list was modified (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.PhaseIdle, h.svc.Phase())
	assert.Contains(t, h.svc.Status().Stats.LastError, "sheet unavailable")
	assert.Equal(t, int64(1), h.svc.Status().Stats.FailedCycles)
}

func TestResolution_EmptySourcePublishesEmptyList(t *testing.T) {
	h := newHarness(makeRecords(2))
	ctx := context.Background()
	require.NoError(t, h.svc.Load(ctx, ""))
	require.NotEmpty(t, h.pub.last().Records)

	h.source.set([]models.ClientRecord{}, nil)
	require.NoError(t, h.svc.Load(ctx, ""))

	last := h.pub.last()
	assert.NotNil(t, last.Records)
	assert.Empty(t, last.Records)
	assert.Equal(t, models.PhaseIdle, last.Phase)
}

func TestResolution_SingleFlight(t *testing.T) {
	records := makeRecords(2)
	h := newHarness(records)
	gate := make(chan struct{})
	h.source.gate = gate

	require.True(t, h.svc.Trigger(""))
	assert.Equal(t, models.PhaseLoadingRecords, h.svc.Phase())

	assert.False(t, h.svc.Trigger(""))
	assert.ErrorIs(t, h.svc.Load(context.Background(), ""), ErrCycleInProgress)
	assert.Len(t, h.pub.all(), 1)

	close(gate)
	require.Eventually(t, func() bool {
		return h.svc.Phase() == models.PhaseIdle && len(h.pub.all()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cycleIDs := map[string]bool{}
	for _, s := range h.pub.all() {
		cycleIDs[s.CycleID] = true
	}
	assert.Len(t, cycleIDs, 1)

	h.source.mu.Lock()
	assert.Equal(t, 1, h.source.calls)
	h.source.mu.Unlock()
}

func TestResolution_ResolverPanicReturnsToIdle(t *testing.T) {
	records := makeRecords(2)
	h := newHarness(records)
	h.cache.Put(context.Background(), records[0].Address, coordFor(0))
	h.resolver.panic = true

	err := h.svc.Load(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, models.PhaseIdle, h.svc.Phase())

	last := h.pub.last()
	assert.False(t, last.IsResolvingCoordinates)
	assert.Len(t, last.Records, 2)
	assert.Equal(t, 1, last.Located())
}

func TestResolution_BatchIsCappedAndDeduplicated(t *testing.T) {
	records := makeRecords(35)
	records = append(records, models.ClientRecord{ID: "dup", Address: records[0].Address})
	records = append(records, models.ClientRecord{ID: "blank", Address: ""})
	h := newHarness(records)

	require.NoError(t, h.svc.Load(context.Background(), ""))

	require.Equal(t, 1, h.resolver.callCount())
	submitted := h.resolver.calls[0]
	assert.Len(t, submitted, 30)
	assert.Equal(t, records[0].Address, submitted[0])
	assert.NotContains(t, submitted, "")
}

func TestResolution_OversizedBatchSizeIsClamped(t *testing.T) {
	h := newHarness(makeRecords(50))
	h.svc = NewResolutionService(h.source, h.cache, h.resolver, h.pub, 50, zap.NewNop())

	require.NoError(t, h.svc.Load(context.Background(), ""))

	require.Equal(t, 1, h.resolver.callCount())
	assert.Len(t, h.resolver.calls[0], geocoder.MaxBatchSize)
}

func TestResolution_SourceCoordinatesAreKept(t *testing.T) {
	records := makeRecords(2)
	records[0] = records[0].WithCoordinate(models.Coordinate{Lat: 33.5, Lng: 126.5})
	h := newHarness(records)

	require.NoError(t, h.svc.Load(context.Background(), ""))

	require.Equal(t, 1, h.resolver.callCount())
	assert.Equal(t, []string{records[1].Address}, h.resolver.calls[0])
	assert.Equal(t, 33.5, h.pub.last().Records[0].Coordinate.Lat)
}

func TestResolution_RecordLookupAndSourceURL(t *testing.T) {
	h := newHarness(makeRecords(2))
	require.NoError(t, h.svc.Load(context.Background(), "http://other.test/sheet.csv"))

	assert.Equal(t, "http://other.test/sheet.csv", h.svc.SourceURL())

	rec, err := h.svc.Record("client-1")
	require.NoError(t, err)
	assert.Equal(t, "상사1", rec.Name)

	_, err = h.svc.Record("client-99")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestMergeCoordinates(t *testing.T) {
	records := []models.ClientRecord{
		{ID: "a", Address: "x"},
		{ID: "b", Address: "x"},
		{ID: "c", Address: "y"},
	}
	merged := mergeCoordinates(records, map[string]models.Coordinate{"x": {Lat: 1, Lng: 1}})

	assert.NotNil(t, merged[0].Coordinate)
	assert.NotNil(t, merged[1].Coordinate)
	assert.Nil(t, merged[2].Coordinate)
	assert.Nil(t, records[0].Coordinate, "input must not be mutated")
}
