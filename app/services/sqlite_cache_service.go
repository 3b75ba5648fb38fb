package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/client-geomap/app/models"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteGeoCacheSchema = `
CREATE TABLE IF NOT EXISTS geo_cache (
	cache_key  TEXT PRIMARY KEY,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteCoordinateStore local durable store. Several processes (server,
// worker, CLI) may open the same file; every call goes to the database so
// each sees the others' writes.
type SQLiteCoordinateStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteCoordinateStore opens (or creates) the database at path
func NewSQLiteCoordinateStore(path string, logger *zap.Logger) (*SQLiteCoordinateStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer per process, the busy timeout covers the others
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteGeoCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating geo_cache table: %w", err)
	}

	store := &SQLiteCoordinateStore{db: db, path: path, logger: logger}

	n, err := store.Len(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("SQLite coordinate cache opened",
		zap.String("path", path),
		zap.Int64("entries", n))

	return store, nil
}

// Get reads key
func (s *SQLiteCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	var c models.Coordinate
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lng FROM geo_cache WHERE cache_key = ?`, key).Scan(&c.Lat, &c.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query geo_cache: %w", err)
	}
	return &c, true, nil
}

// Set upserts key
func (s *SQLiteCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geo_cache (cache_key, lat, lng)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			lat = excluded.lat,
			lng = excluded.lng,
			updated_at = CURRENT_TIMESTAMP`,
		key, c.Lat, c.Lng)
	if err != nil {
		return fmt.Errorf("upsert geo_cache: %w", err)
	}
	return nil
}

// Delete removes key
func (s *SQLiteCoordinateStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM geo_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete geo_cache: %w", err)
	}
	return nil
}

// Clear empties the table
func (s *SQLiteCoordinateStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM geo_cache`); err != nil {
		return fmt.Errorf("clear geo_cache: %w", err)
	}
	return nil
}

// Len counts rows
func (s *SQLiteCoordinateStore) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geo_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count geo_cache: %w", err)
	}
	return n, nil
}

// Name backend name
func (s *SQLiteCoordinateStore) Name() string {
	return "sqlite"
}

// Close closes the database
func (s *SQLiteCoordinateStore) Close() error {
	return s.db.Close()
}
