package responses

import (
	"time"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/app/services"
)

// ErrorResponse error body
type ErrorResponse struct {
	Error     string      `json:"error"`   // upper-snake error code
	Message   string      `json:"message"` // human readable
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// SuccessResponse generic acknowledgement
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// HealthCheckResponse health probe body
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// ClientListResponse current client list plus phase flags
type ClientListResponse struct {
	CycleID                string                `json:"cycle_id,omitempty"`
	Phase                  models.Phase          `json:"phase"`
	IsLoadingRecords       bool                  `json:"is_loading_records"`
	IsResolvingCoordinates bool                  `json:"is_resolving_coordinates"`
	Total                  int                   `json:"total"`   // before filtering
	Located                int                   `json:"located"` // before filtering
	Count                  int                   `json:"count"`
	Records                []models.ClientRecord `json:"records"`
	PublishedAt            time.Time             `json:"published_at"`
}

// RefreshResponse result of a refresh request
type RefreshResponse struct {
	Started   bool         `json:"started"`
	Phase     models.Phase `json:"phase"`
	SourceURL string       `json:"source_url"`
	Message   string       `json:"message"`
}

// SourceResponse configured record source
type SourceResponse struct {
	URL string `json:"url"`
}

// NormalizedAddress one normalization result
type NormalizedAddress struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	CacheKey   string `json:"cache_key"`
}

// NormalizeResponse normalization results in request order
type NormalizeResponse struct {
	Results []NormalizedAddress `json:"results"`
}

// GeocodeResponse single geocode result
type GeocodeResponse struct {
	Address          string             `json:"address"`
	Normalized       string             `json:"normalized"`
	Found            bool               `json:"found"`
	Coordinate       *models.Coordinate `json:"coordinate,omitempty"`
	CacheHit         bool               `json:"cache_hit"`
	Resolver         string             `json:"resolver,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}

// BatchGeocodeItem one resolved address of a batch
type BatchGeocodeItem struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// CacheDeleteResponse number of addresses removed
type CacheDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// AdminStatusResponse orchestrator and cache state
type AdminStatusResponse struct {
	Resolution       services.ResolutionStatus `json:"resolution"`
	Cache            *services.CacheStats      `json:"cache,omitempty"`
	Subscribers      int                       `json:"subscribers"`
	GeminiConfigured bool                      `json:"gemini_configured"`
	Uptime           string                    `json:"uptime"`
}
