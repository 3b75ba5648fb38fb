package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const geoCacheSchema = `
CREATE TABLE IF NOT EXISTS geo_cache (
	cache_key  TEXT PRIMARY KEY,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresCoordinateStore persistent store on a single upsert table
type PostgresCoordinateStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresCoordinateStore connects to dsn and ensures the table exists
func NewPostgresCoordinateStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresCoordinateStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, geoCacheSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating geo_cache table: %w", err)
	}

	logger.Info("Postgres coordinate cache ready")

	return &PostgresCoordinateStore{pool: pool, logger: logger}, nil
}

// Get reads key
func (ps *PostgresCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	var c models.Coordinate
	err := ps.pool.QueryRow(ctx,
		`SELECT lat, lng FROM geo_cache WHERE cache_key = $1`, key).Scan(&c.Lat, &c.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query geo_cache: %w", err)
	}
	return &c, true, nil
}

// Set upserts key
func (ps *PostgresCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO geo_cache (cache_key, lat, lng)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, updated_at = now()`,
		key, c.Lat, c.Lng)
	if err != nil {
		return fmt.Errorf("upsert geo_cache: %w", err)
	}
	return nil
}

// Delete removes key
func (ps *PostgresCoordinateStore) Delete(ctx context.Context, key string) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM geo_cache WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("delete geo_cache: %w", err)
	}
	return nil
}

// Clear truncates the table
func (ps *PostgresCoordinateStore) Clear(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, `TRUNCATE geo_cache`); err != nil {
		return fmt.Errorf("truncate geo_cache: %w", err)
	}
	ps.logger.Info("Postgres coordinate cache cleared")
	return nil
}

// Len counts rows
func (ps *PostgresCoordinateStore) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := ps.pool.QueryRow(ctx, `SELECT count(*) FROM geo_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count geo_cache: %w", err)
	}
	return n, nil
}

// Name backend name
func (ps *PostgresCoordinateStore) Name() string {
	return "postgres"
}

// Close closes the pool
func (ps *PostgresCoordinateStore) Close() error {
	ps.pool.Close()
	return nil
}
