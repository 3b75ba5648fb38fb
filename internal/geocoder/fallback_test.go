package geocoder

import (
	"context"
	"testing"

	"github.com/client-geomap/app/models"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	name      string
	available bool
	calls     int
}

func (s *stubResolver) Name() string    { return s.name }
func (s *stubResolver) Available() bool { return s.available }

func (s *stubResolver) Resolve(ctx context.Context, address string) (*models.Coordinate, bool) {
	s.calls++
	return &models.Coordinate{Lat: 1, Lng: 1}, true
}

func (s *stubResolver) ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate {
	s.calls++
	out := make(map[string]models.Coordinate, len(addresses))
	for _, a := range addresses {
		out[a] = models.Coordinate{Lat: 1, Lng: 1}
	}
	return out
}

func TestFallback_UsesFirstAvailable(t *testing.T) {
	ai := &stubResolver{name: "gemini", available: false}
	rule := &stubResolver{name: "nominatim", available: true}

	f := NewFallback(ai, nil, rule)
	assert.True(t, f.Available())
	assert.Equal(t, "nominatim [gemini,nominatim]", f.Name())

	got := f.ResolveBatch(context.Background(), []string{"a"})
	assert.Len(t, got, 1)
	assert.Equal(t, 0, ai.calls)
	assert.Equal(t, 1, rule.calls)

	ai.available = true
	f.Resolve(context.Background(), "a")
	assert.Equal(t, 1, ai.calls)
}

func TestFallback_NoneAvailable(t *testing.T) {
	f := NewFallback(&stubResolver{name: "gemini"})
	assert.False(t, f.Available())
	assert.Empty(t, f.ResolveBatch(context.Background(), []string{"a"}))

	_, ok := f.Resolve(context.Background(), "a")
	assert.False(t, ok)
}
