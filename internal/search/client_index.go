package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/client-geomap/app/models"
	"github.com/mozillazg/go-unidecode"
	"go.uber.org/zap"
)

var errIndexNotReady = errors.New("client index not built yet")

// Config index settings
type Config struct {
	Host      string
	APIKey    string
	IndexName string
}

type documentWriter interface {
	ReplaceDocuments(index string, docs []map[string]interface{}, chunk int) error
}

// ClientIndex mirrors the final client list of every cycle into Meilisearch
type ClientIndex struct {
	client    *ClientWrapper
	writer    documentWriter
	indexName string
	logger    *zap.Logger

	mu       sync.Mutex
	ready    bool
	version  string // cycle id of the indexed snapshot
	pending  *models.Snapshot
	indexing bool
}

// NewClientIndex creates the index and applies its settings
func NewClientIndex(config Config, logger *zap.Logger) (*ClientIndex, error) {
	if config.IndexName == "" {
		config.IndexName = "clients"
	}

	client := NewClientWrapper(config.Host, config.APIKey)
	ci := &ClientIndex{
		client:    client,
		writer:    client,
		indexName: config.IndexName,
		logger:    logger,
	}

	if !ci.client.Healthy() {
		return nil, errors.New("meilisearch is not healthy at " + config.Host)
	}

	taskUID, err := ci.client.Configure(ci.indexName,
		[]string{"name", "representative", "address", "category", "business_type", "romanized"},
		[]string{"located", "type"},
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Client index configured",
		zap.String("index", ci.indexName),
		zap.Int64("task_uid", taskUID))

	return ci, nil
}

// Publish queues a reindex for final snapshots; intermediate snapshots of a
// running cycle are ignored. One reindex runs at a time and only the newest
// queued snapshot is written after it.
func (ci *ClientIndex) Publish(snap models.Snapshot) {
	if snap.IsLoadingRecords || snap.IsResolvingCoordinates {
		return
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.pending == nil && ci.ready && ci.version == snap.CycleID {
		return
	}
	ci.pending = &snap
	if !ci.indexing {
		ci.indexing = true
		go ci.drain()
	}
}

func (ci *ClientIndex) drain() {
	for {
		ci.mu.Lock()
		snap := ci.pending
		ci.pending = nil
		if snap == nil {
			ci.indexing = false
			ci.mu.Unlock()
			return
		}
		ci.mu.Unlock()

		ci.reindex(*snap)
	}
}

func (ci *ClientIndex) reindex(snap models.Snapshot) {
	start := time.Now()
	docs := Documents(snap.Records)
	if err := ci.writer.ReplaceDocuments(ci.indexName, docs, 1000); err != nil {
		ci.logger.Warn("Client reindex failed", zap.String("cycle_id", snap.CycleID), zap.Error(err))
		return
	}

	ci.mu.Lock()
	ci.ready = true
	ci.version = snap.CycleID
	ci.mu.Unlock()

	ci.logger.Info("Client index rebuilt",
		zap.String("cycle_id", snap.CycleID),
		zap.Int("documents", len(docs)),
		zap.Duration("duration", time.Since(start)))
}

// Version returns the cycle id of the indexed snapshot, empty before the
// first successful reindex.
func (ci *ClientIndex) Version() string {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.version
}

// SearchIDs returns matching record ids in relevance order. located, when
// set, keeps only records with (or without) a coordinate.
func (ci *ClientIndex) SearchIDs(ctx context.Context, q string, located *bool, limit int64) ([]string, error) {
	ci.mu.Lock()
	ready := ci.ready
	ci.mu.Unlock()
	if !ready {
		return nil, errIndexNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := ""
	if located != nil {
		filter = FilterLocated(*located)
	}

	result, err := ci.client.SearchIndex(ci.indexName, q, filter, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := hitMap["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Documents converts records to index documents
func Documents(records []models.ClientRecord) []map[string]interface{} {
	docs := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		doc := map[string]interface{}{
			"id":             r.ID,
			"name":           r.Name,
			"representative": r.Representative,
			"business_type":  r.BusinessType,
			"category":       r.Category,
			"type":           string(r.Form),
			"address":        r.Address,
			"romanized":      Romanize(r.Name + " " + r.Address),
			"located":        r.HasCoordinate(),
		}
		docs = append(docs, doc)
	}
	return docs
}

// Romanize transliterates Hangul to lower-case ASCII so latin queries match
func Romanize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(unidecode.Unidecode(s)), " "))
}
