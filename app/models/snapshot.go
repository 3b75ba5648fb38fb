package models

import "time"

// Phase state of the resolution cycle
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseLoadingRecords       Phase = "loading_records"
	PhaseResolvingCoordinates Phase = "resolving_coordinates"
)

// Snapshot is what the presentation layer receives on every publish.
// Each snapshot replaces the previous one entirely.
type Snapshot struct {
	CycleID                string         `json:"cycle_id,omitempty"`
	Phase                  Phase          `json:"phase"`
	Records                []ClientRecord `json:"records"`
	IsLoadingRecords       bool           `json:"is_loading_records"`
	IsResolvingCoordinates bool           `json:"is_resolving_coordinates"`
	PublishedAt            time.Time      `json:"published_at"`
}

// Located counts records carrying a coordinate.
func (s Snapshot) Located() int {
	n := 0
	for _, r := range s.Records {
		if r.HasCoordinate() {
			n++
		}
	}
	return n
}
