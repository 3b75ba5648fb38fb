package geocoder

import (
	"context"
	"strings"

	"github.com/client-geomap/app/models"
)

// Fallback delegates to the first available resolver in order
type Fallback struct {
	resolvers []Resolver
}

// NewFallback chains resolvers, nil entries are skipped
func NewFallback(resolvers ...Resolver) *Fallback {
	f := &Fallback{}
	for _, r := range resolvers {
		if r != nil {
			f.resolvers = append(f.resolvers, r)
		}
	}
	return f
}

func (f *Fallback) active() Resolver {
	for _, r := range f.resolvers {
		if r.Available() {
			return r
		}
	}
	return nil
}

// Name lists the chain, active resolver first
func (f *Fallback) Name() string {
	names := make([]string, 0, len(f.resolvers))
	for _, r := range f.resolvers {
		names = append(names, r.Name())
	}
	if a := f.active(); a != nil {
		return a.Name() + " [" + strings.Join(names, ",") + "]"
	}
	return "none [" + strings.Join(names, ",") + "]"
}

// Available reports whether any resolver can run
func (f *Fallback) Available() bool {
	return f.active() != nil
}

// Resolve uses the active resolver
func (f *Fallback) Resolve(ctx context.Context, address string) (*models.Coordinate, bool) {
	if a := f.active(); a != nil {
		return a.Resolve(ctx, address)
	}
	return nil, false
}

// ResolveBatch uses the active resolver
func (f *Fallback) ResolveBatch(ctx context.Context, addresses []string) map[string]models.Coordinate {
	if a := f.active(); a != nil {
		return a.ResolveBatch(ctx, addresses)
	}
	return map[string]models.Coordinate{}
}
