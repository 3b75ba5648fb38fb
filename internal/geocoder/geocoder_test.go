package geocoder

import (
	"context"
	"sync"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/internal/normalizer"
)

// mapCache is a normalizing in-memory Cache for tests
type mapCache struct {
	mu      sync.Mutex
	entries map[string]models.Coordinate
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]models.Coordinate)}
}

func (m *mapCache) Get(_ context.Context, address string) (*models.Coordinate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[normalizer.Normalize(address)]
	if !ok {
		return nil, false
	}
	return &c, true
}

func (m *mapCache) Put(_ context.Context, address string, c models.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[normalizer.Normalize(address)] = c
	m.puts++
}
