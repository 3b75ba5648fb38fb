package services

import (
	"context"
	"strings"

	"github.com/client-geomap/app/models"
	"github.com/client-geomap/internal/search"
	"github.com/xrash/smetrics"
	"go.uber.org/zap"
)

const fuzzyNameThreshold = 0.9

// ClientIndex is an external full-text index over the client list
type ClientIndex interface {
	SearchIDs(ctx context.Context, q string, located *bool, limit int64) ([]string, error)
}

// ClientQuery filter for the client list
type ClientQuery struct {
	Q       string
	Located *bool
	Limit   int
}

// ClientSearchService filters the published client list. It uses the
// external index when one is configured and falls back to an in-memory scan.
type ClientSearchService struct {
	index  ClientIndex
	logger *zap.Logger
}

// NewClientSearchService creates the service, index may be nil
func NewClientSearchService(index ClientIndex, logger *zap.Logger) *ClientSearchService {
	return &ClientSearchService{index: index, logger: logger}
}

// Search returns the records matching query, in list order for the
// in-memory path and relevance order for the index path.
func (s *ClientSearchService) Search(ctx context.Context, records []models.ClientRecord, query ClientQuery) []models.ClientRecord {
	q := strings.TrimSpace(query.Q)

	if q != "" && s.index != nil {
		limit := int64(len(records))
		if query.Limit > 0 {
			limit = int64(query.Limit)
		}
		ids, err := s.index.SearchIDs(ctx, q, query.Located, limit)
		if err == nil {
			return pickByID(records, ids)
		}
		s.logger.Debug("Client index unavailable, scanning in memory", zap.Error(err))
	}

	out := make([]models.ClientRecord, 0, len(records))
	m := newClientMatcher(q)
	for _, r := range records {
		if query.Located != nil && r.HasCoordinate() != *query.Located {
			continue
		}
		if !m.matches(r) {
			continue
		}
		out = append(out, r)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out
}

func pickByID(records []models.ClientRecord, ids []string) []models.ClientRecord {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}
	out := make([]models.ClientRecord, 0, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, records[i])
		}
	}
	return out
}

type clientMatcher struct {
	q         string
	romanized string // only for latin queries
}

func newClientMatcher(q string) clientMatcher {
	m := clientMatcher{q: strings.ToLower(q)}
	if q != "" && isASCII(q) {
		m.romanized = search.Romanize(q)
	}
	return m
}

func (m clientMatcher) matches(r models.ClientRecord) bool {
	if m.q == "" {
		return true
	}

	for _, field := range []string{r.Name, r.Representative, r.Address, r.Category, r.BusinessType} {
		if strings.Contains(strings.ToLower(field), m.q) {
			return true
		}
	}

	if m.romanized != "" {
		if strings.Contains(search.Romanize(r.Name+" "+r.Representative+" "+r.Address), m.romanized) {
			return true
		}
	}

	name := strings.ToLower(r.Name)
	return name != "" && smetrics.JaroWinkler(name, m.q, 0.7, 4) >= fuzzyNameThreshold
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
