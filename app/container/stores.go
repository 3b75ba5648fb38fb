package container

import (
	"context"
	"fmt"
	"time"

	"github.com/client-geomap/app/services"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// newStore builds the coordinate store for driver
func (c *Container) newStore(ctx context.Context, driver string) (services.ICoordinateStore, error) {
	cfg := c.Config

	switch driver {
	case "memory":
		return services.NewMemoryCoordinateStore(), nil

	case "", "sqlite":
		return services.NewSQLiteCoordinateStore(cfg.Cache.SQLitePath, c.Logger)

	case "redis":
		return services.NewRedisCoordinateStore(cfg.Redis.URL, cfg.Cache.Prefix, c.Logger)

	case "mongo":
		db, err := c.connectMongo(ctx)
		if err != nil {
			return nil, err
		}
		store, err := services.NewMongoCoordinateStore(db, cfg.Cache.L1Size, c.Logger)
		if err != nil {
			return nil, err
		}
		if err := store.WarmUp(ctx, cfg.Cache.L1Size); err != nil {
			c.Logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		return store, nil

	case "postgres":
		return services.NewPostgresCoordinateStore(ctx, cfg.Postgres.DSN, c.Logger)

	case "hybrid":
		if cfg.Cache.L2Driver == "hybrid" || cfg.Cache.L2Driver == "redis" {
			return nil, fmt.Errorf("cache.l2_driver %q cannot back a hybrid cache", cfg.Cache.L2Driver)
		}
		l1, err := services.NewRedisCoordinateStore(cfg.Redis.URL, cfg.Cache.Prefix, c.Logger)
		if err != nil {
			return nil, err
		}
		l2, err := c.newStore(ctx, cfg.Cache.L2Driver)
		if err != nil {
			l1.Close()
			return nil, err
		}
		return services.NewHybridCoordinateStore(l1, l2, c.Logger), nil
	}

	return nil, fmt.Errorf("unknown cache driver %q", driver)
}

func (c *Container) connectMongo(ctx context.Context) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.Config.Mongo.URL))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	c.closers = append(c.closers, func() error {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Disconnect(disconnectCtx)
	})

	c.Logger.Info("Connected to MongoDB", zap.String("database", c.Config.Mongo.Database))
	return client.Database(c.Config.Mongo.Database), nil
}
