package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/client-geomap/app/requests"
	"github.com/client-geomap/app/responses"
	"github.com/client-geomap/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClientController serves the client list and its resolution cycle
type ClientController struct {
	resolution *services.ResolutionService
	hub        *services.SnapshotHub
	search     *services.ClientSearchService
	insights   *services.InsightService
	logger     *zap.Logger
}

// NewClientController creates the controller
func NewClientController(
	resolution *services.ResolutionService,
	hub *services.SnapshotHub,
	search *services.ClientSearchService,
	insights *services.InsightService,
	logger *zap.Logger,
) *ClientController {
	return &ClientController{
		resolution: resolution,
		hub:        hub,
		search:     search,
		insights:   insights,
		logger:     logger,
	}
}

// ListClients GET /v1/clients
func (cc *ClientController) ListClients(c *gin.Context) {
	var query requests.ClientListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query: "+err.Error())
		return
	}

	snap := cc.resolution.Snapshot()
	records := cc.search.Search(c.Request.Context(), snap.Records, services.ClientQuery{
		Q:       query.Q,
		Located: query.Located,
		Limit:   query.Limit,
	})

	c.JSON(http.StatusOK, responses.ClientListResponse{
		CycleID:                snap.CycleID,
		Phase:                  snap.Phase,
		IsLoadingRecords:       snap.IsLoadingRecords,
		IsResolvingCoordinates: snap.IsResolvingCoordinates,
		Total:                  len(snap.Records),
		Located:                snap.Located(),
		Count:                  len(records),
		Records:                records,
		PublishedAt:            snap.PublishedAt,
	})
}

// GetClient GET /v1/clients/:id
func (cc *ClientController) GetClient(c *gin.Context) {
	rec, err := cc.resolution.Record(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found: "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// StreamClients GET /v1/clients/stream, one "snapshot" event per publish
func (cc *ClientController) StreamClients(c *gin.Context) {
	ch, cancel := cc.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	cc.logger.Debug("Snapshot stream opened", zap.String("request_id", c.GetString(RequestIDKey)))

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Refresh POST /v1/clients/refresh
func (cc *ClientController) Refresh(c *gin.Context) {
	var req requests.RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
			return
		}
	}

	cc.respondTrigger(c, cc.resolution.Trigger(req.URL))
}

// GetSource GET /v1/source
func (cc *ClientController) GetSource(c *gin.Context) {
	c.JSON(http.StatusOK, responses.SourceResponse{URL: cc.resolution.SourceURL()})
}

// SetSource PUT /v1/source stores the url and reloads from it
func (cc *ClientController) SetSource(c *gin.Context) {
	var req requests.SetSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	cc.resolution.SetSourceURL(req.URL)
	cc.logger.Info("Record source changed", zap.String("url", req.URL))

	cc.respondTrigger(c, cc.resolution.Trigger(""))
}

func (cc *ClientController) respondTrigger(c *gin.Context, started bool) {
	resp := responses.RefreshResponse{
		Started:   started,
		Phase:     cc.resolution.Phase(),
		SourceURL: cc.resolution.SourceURL(),
	}
	if !started {
		resp.Message = "a resolution cycle is already running"
		c.JSON(http.StatusConflict, resp)
		return
	}
	resp.Message = "resolution cycle started"
	c.JSON(http.StatusAccepted, resp)
}

// Insights POST /v1/clients/:id/insights
func (cc *ClientController) Insights(c *gin.Context) {
	rec, err := cc.resolution.Record(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found: "+c.Param("id"))
		return
	}

	c.JSON(http.StatusOK, cc.insights.Generate(c.Request.Context(), rec))
}
