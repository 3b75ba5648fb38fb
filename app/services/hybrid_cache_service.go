package services

import (
	"context"
	"errors"
	"time"

	"github.com/client-geomap/app/models"
	"go.uber.org/zap"
)

// HybridCoordinateStore combines a fast L1 (usually redis) with a durable L2
// (mongo, postgres or file). L2 hits are copied up to L1.
type HybridCoordinateStore struct {
	l1     ICoordinateStore
	l2     ICoordinateStore
	logger *zap.Logger
}

// NewHybridCoordinateStore creates a two tier store
func NewHybridCoordinateStore(l1, l2 ICoordinateStore, logger *zap.Logger) *HybridCoordinateStore {
	return &HybridCoordinateStore{
		l1:     l1,
		l2:     l2,
		logger: logger,
	}
}

// Get reads L1, then L2
func (hs *HybridCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	c, found, err := hs.l1.Get(ctx, key)
	if err != nil {
		hs.logger.Warn("L1 cache error, falling back to L2",
			zap.String("l1", hs.l1.Name()),
			zap.Error(err))
	} else if found {
		return c, true, nil
	}

	c, found, err = hs.l2.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	promoted := *c
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hs.l1.Set(bgCtx, key, promoted); err != nil {
			hs.logger.Warn("Could not promote entry to L1", zap.String("key", key), zap.Error(err))
		}
	}()

	return c, true, nil
}

// Set writes both tiers in parallel
func (hs *HybridCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	return hs.both(func(s ICoordinateStore) error {
		return s.Set(ctx, key, c)
	})
}

// Delete removes key from both tiers
func (hs *HybridCoordinateStore) Delete(ctx context.Context, key string) error {
	return hs.both(func(s ICoordinateStore) error {
		return s.Delete(ctx, key)
	})
}

// Clear empties both tiers
func (hs *HybridCoordinateStore) Clear(ctx context.Context) error {
	if err := hs.both(func(s ICoordinateStore) error {
		return s.Clear(ctx)
	}); err != nil {
		return err
	}

	hs.logger.Info("Hybrid coordinate cache cleared",
		zap.String("l1", hs.l1.Name()),
		zap.String("l2", hs.l2.Name()))
	return nil
}

// Len reports the durable tier
func (hs *HybridCoordinateStore) Len(ctx context.Context) (int64, error) {
	return hs.l2.Len(ctx)
}

// Name backend name
func (hs *HybridCoordinateStore) Name() string {
	return "hybrid(" + hs.l1.Name() + "+" + hs.l2.Name() + ")"
}

// Close closes both tiers
func (hs *HybridCoordinateStore) Close() error {
	return hs.both(func(s ICoordinateStore) error {
		return s.Close()
	})
}

func (hs *HybridCoordinateStore) both(fn func(ICoordinateStore) error) error {
	errCh := make(chan error, 2)

	for _, s := range []ICoordinateStore{hs.l1, hs.l2} {
		go func(s ICoordinateStore) {
			errCh <- fn(s)
		}(s)
	}

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
