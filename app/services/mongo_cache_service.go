package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/client-geomap/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCoordinateStore persistent store on MongoDB with an in-process LRU in front
type MongoCoordinateStore struct {
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, models.Coordinate]
	logger     *zap.Logger

	l1Hits    atomic.Int64
	mongoHits atomic.Int64
}

// NewMongoCoordinateStore uses the geo_cache collection of db
func NewMongoCoordinateStore(db *mongo.Database, l1Size int, logger *zap.Logger) (*MongoCoordinateStore, error) {
	if l1Size <= 0 {
		l1Size = 10000
	}
	l1Cache, err := lru.New[string, models.Coordinate](l1Size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}

	collection := db.Collection("geo_cache")

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "access_count", Value: -1}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Could not create geo_cache indexes", zap.Error(err))
	}

	return &MongoCoordinateStore{
		collection: collection,
		l1Cache:    l1Cache,
		logger:     logger,
	}, nil
}

// Get checks the LRU first, then MongoDB
func (ms *MongoCoordinateStore) Get(ctx context.Context, key string) (*models.Coordinate, bool, error) {
	if c, found := ms.l1Cache.Get(key); found {
		ms.l1Hits.Add(1)
		return &c, true, nil
	}

	var entry models.GeoCacheEntry
	err := ms.collection.FindOne(ctx, bson.M{"key": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying geo_cache: %w", err)
	}

	ms.mongoHits.Add(1)
	go ms.touch(key)

	c := entry.Coordinate()
	ms.l1Cache.Add(key, c)
	return &c, true, nil
}

// Set upserts key, keeping created_at and access_count of an existing document
func (ms *MongoCoordinateStore) Set(ctx context.Context, key string, c models.Coordinate) error {
	ms.l1Cache.Add(key, c)

	entry := models.NewGeoCacheEntry(key, c)
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"lat":        entry.Lat,
			"lng":        entry.Lng,
			"updated_at": entry.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at":   entry.CreatedAt,
			"access_count": entry.AccessCount,
		},
	}

	if _, err := ms.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upserting geo_cache: %w", err)
	}
	return nil
}

// Delete removes key from both tiers
func (ms *MongoCoordinateStore) Delete(ctx context.Context, key string) error {
	ms.l1Cache.Remove(key)

	if _, err := ms.collection.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return fmt.Errorf("deleting from geo_cache: %w", err)
	}
	return nil
}

// Clear empties both tiers
func (ms *MongoCoordinateStore) Clear(ctx context.Context) error {
	ms.l1Cache.Purge()

	result, err := ms.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("clearing geo_cache: %w", err)
	}

	ms.l1Hits.Store(0)
	ms.mongoHits.Store(0)

	ms.logger.Info("Mongo coordinate cache cleared", zap.Int64("deleted_count", result.DeletedCount))
	return nil
}

// Len counts persisted documents
func (ms *MongoCoordinateStore) Len(ctx context.Context) (int64, error) {
	count, err := ms.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting geo_cache: %w", err)
	}

	ms.logger.Debug("Mongo cache size",
		zap.Int("l1_size", ms.l1Cache.Len()),
		zap.Int64("l1_hits", ms.l1Hits.Load()),
		zap.Int64("mongo_hits", ms.mongoHits.Load()),
		zap.Int64("mongo_count", count))

	return count, nil
}

// WarmUp loads the most accessed entries into the LRU
func (ms *MongoCoordinateStore) WarmUp(ctx context.Context, limit int) error {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := ms.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("warming up geo_cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry models.GeoCacheEntry
		if err := cursor.Decode(&entry); err != nil {
			ms.logger.Warn("Skipping undecodable geo_cache entry", zap.Error(err))
			continue
		}
		ms.l1Cache.Add(entry.Key, entry.Coordinate())
		count++
	}

	ms.logger.Info("Coordinate cache warm up done",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", ms.l1Cache.Len()))

	return cursor.Err()
}

func (ms *MongoCoordinateStore) touch(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"access_count": 1},
	}
	if _, err := ms.collection.UpdateOne(ctx, bson.M{"key": key}, update); err != nil {
		ms.logger.Warn("Could not update access count", zap.String("key", key), zap.Error(err))
	}
}

// Name backend name
func (ms *MongoCoordinateStore) Name() string {
	return "mongo"
}

// Close is a no-op, the client is owned by the caller
func (ms *MongoCoordinateStore) Close() error {
	return nil
}
