package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoCacheEntry persisted coordinate cache document
type GeoCacheEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key         string             `bson:"key" json:"key"` // prefix + normalized address
	Lat         float64            `bson:"lat" json:"lat"`
	Lng         float64            `bson:"lng" json:"lng"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	AccessCount int                `bson:"access_count" json:"access_count"` // bumped on every L2 hit
}

// NewGeoCacheEntry creates an entry for key
func NewGeoCacheEntry(key string, c Coordinate) *GeoCacheEntry {
	now := time.Now()
	return &GeoCacheEntry{
		Key:         key,
		Lat:         c.Lat,
		Lng:         c.Lng,
		CreatedAt:   now,
		UpdatedAt:   now,
		AccessCount: 0,
	}
}

// Coordinate returns the stored pair
func (e *GeoCacheEntry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lng: e.Lng}
}
