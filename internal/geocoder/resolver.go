// Package geocoder turns raw client addresses into coordinates.
package geocoder

import (
	"context"

	"github.com/client-geomap/app/models"
)

// Resolver is one address resolution strategy. Implementations never return
// errors: a failed address is simply absent from the result.
type Resolver interface {
	// Name identifies the strategy in logs and status output
	Name() string

	// Available reports whether the strategy can run (credentials, config)
	Available() bool

	// Resolve looks up a single raw address
	Resolve(ctx context.Context, address string) (*models.Coordinate, bool)

	// ResolveBatch looks up many raw addresses. The result is keyed by the
	// exact strings passed in and may hold fewer entries than requested.
	ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate
}

// Cache is the coordinate cache a resolver writes its successes to
type Cache interface {
	Get(ctx context.Context, address string) (*models.Coordinate, bool)
	Put(ctx context.Context, address string, c models.Coordinate)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*models.Coordinate, bool) { return nil, false }
func (noopCache) Put(context.Context, string, models.Coordinate)         {}
