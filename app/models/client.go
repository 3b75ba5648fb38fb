package models

import "math"

// BusinessForm legal form of a client (법인/개인)
type BusinessForm string

const (
	FormCorporation BusinessForm = "Corporation"
	FormIndividual  BusinessForm = "Individual"
)

// Coordinate resolved latitude/longitude pair
type Coordinate struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Valid reports whether the pair is finite and inside WGS84 bounds.
// The zero pair is treated as "not set", the source sheets use 0 for blank cells.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// ClientRecord one business client row loaded from the record source
type ClientRecord struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`           // 상호
	Representative string       `json:"representative"` // 대표자
	BusinessType   string       `json:"business_type"`  // 업태
	Category       string       `json:"category"`       // 종목
	Form           BusinessForm `json:"type"`           // 법인/개인
	BusinessNumber string       `json:"business_number"`
	Phone          string       `json:"phone"`
	Address        string       `json:"address"`
	Coordinate     *Coordinate  `json:"coordinate,omitempty"`
}

// HasCoordinate reports whether the record is ready to be plotted.
func (r ClientRecord) HasCoordinate() bool {
	return r.Coordinate != nil
}

// WithCoordinate returns a copy of r located at c.
// Records without an address never get a coordinate.
func (r ClientRecord) WithCoordinate(c Coordinate) ClientRecord {
	if r.Address == "" {
		return r
	}
	coord := c
	r.Coordinate = &coord
	return r
}

// CloneRecords copies the slice so a published list is never mutated afterwards.
func CloneRecords(records []ClientRecord) []ClientRecord {
	if records == nil {
		return []ClientRecord{}
	}
	out := make([]ClientRecord, len(records))
	copy(out, records)
	return out
}
