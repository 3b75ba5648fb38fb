package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", c.App.Port)
	assert.Equal(t, StrategyAuto, c.Resolver.Strategy)
	assert.Equal(t, 30, c.Resolver.BatchSize)
	assert.Equal(t, 3, c.Nominatim.MinTokens)
	assert.Equal(t, time.Second, c.Nominatim.RateLimit)
	assert.Equal(t, "ko-KR,ko;q=0.9", c.Nominatim.AcceptLanguage)
	assert.Equal(t, "gemini-2.5-flash", c.Gemini.Model)
	assert.Equal(t, "sqlite", c.Cache.Driver)
	assert.Equal(t, "data/geo_cache.db", c.Cache.SQLitePath)
	assert.Equal(t, "geo_cache_", c.Cache.Prefix)
	assert.Equal(t, 10*time.Minute, c.Worker.Interval)
	assert.False(t, c.IsProduction())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: production
resolver:
  strategy: RULE
  batch_size: 10
cache:
  driver: memory
`), 0o644))

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("CACHE_DRIVER", "redis")

	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.IsProduction())
	assert.Equal(t, StrategyRule, c.Resolver.Strategy)
	assert.Equal(t, 10, c.Resolver.BatchSize)
	assert.Equal(t, "from-env", c.Gemini.APIKey)
	assert.Equal(t, "redis", c.Cache.Driver)
}

func TestLoad_InvalidStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  strategy: magic\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolver.strategy")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BatchSizeBounds(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, v := range []string{"0", "31", "50"} {
		t.Setenv("RESOLVER_BATCH_SIZE", v)
		_, err := Load("")
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "resolver.batch_size")
	}

	t.Setenv("RESOLVER_BATCH_SIZE", "30")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, MaxBatchSize, c.Resolver.BatchSize)
}
