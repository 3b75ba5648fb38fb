package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nominatimStub struct {
	mu      sync.Mutex
	queries []string
	headers []http.Header
	handler func(w http.ResponseWriter, q string)
}

func (s *nominatimStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()
	s.handler(w, q)
}

func newTestNominatim(t *testing.T, stub *nominatimStub, cache Cache) *NominatimResolver {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewNominatimResolver(NominatimConfig{
		BaseURL:      srv.URL,
		CountryCodes: "kr",
		MinTokens:    3,
	}, cache, zap.NewNop())
}

func TestNominatim_TruncationStopsAtFirstHit(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		if q == "경기도 성남시 분당구" {
			_, _ = w.Write([]byte(`[{"lat":"37.3826","lon":"127.1189","display_name":"분당구"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}}
	cache := newMapCache()
	r := newTestNominatim(t, stub, cache)

	c, ok := r.Resolve(context.Background(), "경기도 성남시 분당구 판교역로 235")
	require.True(t, ok)
	assert.InDelta(t, 37.3826, c.Lat, 1e-9)
	assert.InDelta(t, 127.1189, c.Lng, 1e-9)

	assert.Equal(t, []string{
		"경기도 성남시 분당구 판교역로 235",
		"경기도 성남시 분당구 판교역로",
		"경기도 성남시 분당구",
	}, stub.queries)

	cached, hit := cache.Get(context.Background(), "경기도 성남시 분당구 판교역로 235")
	require.True(t, hit)
	assert.Equal(t, *c, *cached)
}

func TestNominatim_StopsBelowMinTokens(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		_, _ = w.Write([]byte(`[]`))
	}}
	r := newTestNominatim(t, stub, nil)

	_, ok := r.Resolve(context.Background(), "경기도 성남시 분당구 판교역로 235")
	assert.False(t, ok)
	assert.Len(t, stub.queries, 3)
}

func TestNominatim_FailuresContinueTheChain(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		switch q {
		case "a b c d e":
			http.Error(w, "busy", http.StatusServiceUnavailable)
		case "a b c d":
			_, _ = w.Write([]byte(`{not json`))
		default:
			_, _ = w.Write([]byte(`[{"lat":"35.1","lon":"129.0"}]`))
		}
	}}
	r := newTestNominatim(t, stub, nil)

	c, ok := r.Resolve(context.Background(), "a b c d e")
	require.True(t, ok)
	assert.Equal(t, 35.1, c.Lat)
	assert.Equal(t, []string{"a b c d e", "a b c d", "a b c"}, stub.queries)
}

func TestNominatim_QueriesNormalizedAddressWithHeaders(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		_, _ = w.Write([]byte(`[{"lat":"37.5","lon":"126.9"}]`))
	}}
	r := newTestNominatim(t, stub, nil)

	_, ok := r.Resolve(context.Background(), "07313 서울 영등포구 신길로 220 102호(신길동)")
	require.True(t, ok)

	require.Len(t, stub.queries, 1)
	assert.Equal(t, "서울 영등포구 신길로 220", stub.queries[0])
	assert.Equal(t, "ko-KR,ko;q=0.9", stub.headers[0].Get("Accept-Language"))
	assert.Equal(t, "client-geomap/1.0", stub.headers[0].Get("User-Agent"))
}

func TestNominatim_MalformedCoordinateIsNoResult(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"east"}]`))
	}}
	r := newTestNominatim(t, stub, nil)

	_, ok := r.Resolve(context.Background(), "서울 중구 세종대로")
	assert.False(t, ok)
}

func TestNominatim_EmptyAddress(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		t.Fatalf("unexpected request %q", q)
	}}
	r := newTestNominatim(t, stub, nil)

	_, ok := r.Resolve(context.Background(), "   ")
	assert.False(t, ok)
}

func TestNominatim_ResolveBatchDeduplicates(t *testing.T) {
	stub := &nominatimStub{handler: func(w http.ResponseWriter, q string) {
		if q == "서울 중구 세종대로 110" {
			_, _ = w.Write([]byte(`[{"lat":"37.5663","lon":"126.9779"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}}
	r := newTestNominatim(t, stub, nil)

	got := r.ResolveBatch(context.Background(), []string{
		"서울 중구 세종대로 110",
		"서울 중구 세종대로 110",
		"없는 주소",
	})

	assert.Len(t, got, 1)
	assert.Contains(t, got, "서울 중구 세종대로 110")
	assert.Equal(t, []string{"서울 중구 세종대로 110", "없는 주소"}, stub.queries)
}
