package services

import (
	"context"
	"sync"

	"github.com/client-geomap/app/models"
)

// MemoryCoordinateStore in-memory store, lost on restart
type MemoryCoordinateStore struct {
	cache map[string]models.Coordinate
	mu    sync.RWMutex
}

// NewMemoryCoordinateStore creates an empty store
func NewMemoryCoordinateStore() *MemoryCoordinateStore {
	return &MemoryCoordinateStore{
		cache: make(map[string]models.Coordinate),
	}
}

// Get returns a copy of the stored coordinate
func (ms *MemoryCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if c, exists := ms.cache[key]; exists {
		return &c, true, nil
	}
	return nil, false, nil
}

// Set stores c, last write wins
func (ms *MemoryCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.cache[key] = c
	return nil
}

// Delete removes key
func (ms *MemoryCoordinateStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.cache, key)
	return nil
}

// Clear drops everything
func (ms *MemoryCoordinateStore) Clear(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.cache = make(map[string]models.Coordinate)
	return nil
}

// Len counts entries
func (ms *MemoryCoordinateStore) Len(ctx context.Context) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return int64(len(ms.cache)), nil
}

// Name backend name
func (ms *MemoryCoordinateStore) Name() string {
	return "memory"
}

// Close is a no-op
func (ms *MemoryCoordinateStore) Close() error {
	return nil
}
