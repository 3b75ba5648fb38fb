package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application settings, read once at startup
type Config struct {
	App struct {
		Port string
		Env  string
	}
	Source struct {
		URL     string
		Timeout time.Duration
	}
	Resolver struct {
		Strategy  string
		BatchSize int
	}
	Nominatim struct {
		URL            string
		UserAgent      string
		AcceptLanguage string
		CountryCodes   string
		RateLimit      time.Duration
		MinTokens      int
	}
	Gemini struct {
		URL     string
		APIKey  string
		Model   string
		Timeout time.Duration
	}
	Cache struct {
		Driver     string
		Prefix     string
		SQLitePath string
		L1Size     int
		L2Driver   string
	}
	Redis struct {
		URL string
	}
	Mongo struct {
		URL      string
		Database string
	}
	Postgres struct {
		DSN string
	}
	Meilisearch struct {
		Enabled bool
		URL     string
		APIKey  string
		Index   string
	}
	Insights struct {
		CacheSize int
	}
	Worker struct {
		Interval time.Duration
	}
}

// MaxBatchSize upper bound of resolver.batch_size, one inference request
const MaxBatchSize = 30

// Resolver strategies
const (
	StrategyAuto = "auto"
	StrategyAI   = "ai"
	StrategyRule = "rule"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")

	v.SetDefault("source.url", "")
	v.SetDefault("source.timeout", 30*time.Second)

	v.SetDefault("resolver.strategy", StrategyAuto)
	v.SetDefault("resolver.batch_size", 30)

	v.SetDefault("nominatim.url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "client-geomap/1.0")
	v.SetDefault("nominatim.accept_language", "ko-KR,ko;q=0.9")
	v.SetDefault("nominatim.country_codes", "kr")
	v.SetDefault("nominatim.rate_limit", time.Second)
	v.SetDefault("nominatim.min_tokens", 3)

	v.SetDefault("gemini.url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", 60*time.Second)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.prefix", "geo_cache_")
	v.SetDefault("cache.sqlite_path", "data/geo_cache.db")
	v.SetDefault("cache.l1_size", 10000)
	v.SetDefault("cache.l2_driver", "mongo")

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("mongo.url", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "client_geomap")
	v.SetDefault("postgres.dsn", "postgres://localhost:5432/client_geomap")

	v.SetDefault("meilisearch.enabled", false)
	v.SetDefault("meilisearch.url", "http://localhost:7700")
	v.SetDefault("meilisearch.api_key", "")
	v.SetDefault("meilisearch.index", "clients")

	v.SetDefault("insights.cache_size", 256)
	v.SetDefault("worker.interval", 10*time.Minute)
}

// Load reads config/app.yaml (or path when given) and environment overrides.
// A missing config file is not an error, defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{}

	c.App.Port = v.GetString("app.port")
	c.App.Env = v.GetString("app.env")

	c.Source.URL = v.GetString("source.url")
	c.Source.Timeout = v.GetDuration("source.timeout")

	c.Resolver.Strategy = strings.ToLower(v.GetString("resolver.strategy"))
	c.Resolver.BatchSize = v.GetInt("resolver.batch_size")

	c.Nominatim.URL = v.GetString("nominatim.url")
	c.Nominatim.UserAgent = v.GetString("nominatim.user_agent")
	c.Nominatim.AcceptLanguage = v.GetString("nominatim.accept_language")
	c.Nominatim.CountryCodes = v.GetString("nominatim.country_codes")
	c.Nominatim.RateLimit = v.GetDuration("nominatim.rate_limit")
	c.Nominatim.MinTokens = v.GetInt("nominatim.min_tokens")

	c.Gemini.URL = v.GetString("gemini.url")
	c.Gemini.APIKey = v.GetString("gemini.api_key")
	c.Gemini.Model = v.GetString("gemini.model")
	c.Gemini.Timeout = v.GetDuration("gemini.timeout")

	c.Cache.Driver = strings.ToLower(v.GetString("cache.driver"))
	c.Cache.Prefix = v.GetString("cache.prefix")
	c.Cache.SQLitePath = v.GetString("cache.sqlite_path")
	c.Cache.L1Size = v.GetInt("cache.l1_size")
	c.Cache.L2Driver = strings.ToLower(v.GetString("cache.l2_driver"))

	c.Redis.URL = v.GetString("redis.url")
	c.Mongo.URL = v.GetString("mongo.url")
	c.Mongo.Database = v.GetString("mongo.database")
	c.Postgres.DSN = v.GetString("postgres.dsn")

	c.Meilisearch.Enabled = v.GetBool("meilisearch.enabled")
	c.Meilisearch.URL = v.GetString("meilisearch.url")
	c.Meilisearch.APIKey = v.GetString("meilisearch.api_key")
	c.Meilisearch.Index = v.GetString("meilisearch.index")

	c.Insights.CacheSize = v.GetInt("insights.cache_size")
	c.Worker.Interval = v.GetDuration("worker.interval")

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Resolver.Strategy {
	case StrategyAuto, StrategyAI, StrategyRule:
	default:
		return fmt.Errorf("resolver.strategy must be auto, ai or rule, got %q", c.Resolver.Strategy)
	}
	if c.Resolver.BatchSize <= 0 || c.Resolver.BatchSize > MaxBatchSize {
		return fmt.Errorf("resolver.batch_size must be between 1 and %d, got %d", MaxBatchSize, c.Resolver.BatchSize)
	}
	if c.Nominatim.MinTokens < 1 {
		return fmt.Errorf("nominatim.min_tokens must be at least 1, got %d", c.Nominatim.MinTokens)
	}
	return nil
}

// IsProduction reports app.env == production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
