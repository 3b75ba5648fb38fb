package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCoordinateStore stores coordinates as JSON strings without expiry
type RedisCoordinateStore struct {
	client *redis.Client
	logger *zap.Logger
	prefix string // only used to scope Clear and Len
}

// NewRedisCoordinateStore connects to redisURL and pings it
func NewRedisCoordinateStore(redisURL string, prefix string, logger *zap.Logger) (*RedisCoordinateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	return newRedisCoordinateStore(client, prefix, logger), nil
}

func newRedisCoordinateStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisCoordinateStore {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &RedisCoordinateStore{
		client: client,
		logger: logger,
		prefix: prefix,
	}
}

// Get reads key
func (rs *RedisCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	val, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var c models.Coordinate
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		rs.logger.Warn("Dropping undecodable redis entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}

	return &c, true, nil
}

// Set writes key with no TTL
func (rs *RedisCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding coordinate: %w", err)
	}

	if err := rs.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key
func (rs *RedisCoordinateStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix
func (rs *RedisCoordinateStore) Clear(ctx context.Context) error {
	keys, err := rs.scanKeys(ctx)
	if err != nil {
		return err
	}

	const chunk = 500
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		if err := rs.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}

	rs.logger.Info("Redis coordinate cache cleared", zap.Int("keys_deleted", len(keys)))
	return nil
}

// Len counts keys under the prefix
func (rs *RedisCoordinateStore) Len(ctx context.Context) (int64, error) {
	keys, err := rs.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

func (rs *RedisCoordinateStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

// Name backend name
func (rs *RedisCoordinateStore) Name() string {
	return "redis"
}

// Close closes the connection pool
func (rs *RedisCoordinateStore) Close() error {
	return rs.client.Close()
}
