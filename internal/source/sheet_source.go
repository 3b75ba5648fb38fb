// Package source loads client records from a published spreadsheet.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/client-geomap/app/models"
	"go.uber.org/zap"
)

// ErrEmptySourceURL is returned when no source URL is configured
var ErrEmptySourceURL = errors.New("source: url is empty")

const maxPayloadBytes = 32 << 20

// SheetSource fetches a CSV or XLSX export over HTTP
type SheetSource struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSheetSource creates a source with the given fetch timeout
func NewSheetSource(timeout time.Duration, logger *zap.Logger) *SheetSource {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SheetSource{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch downloads url and parses it. Transport failures and non-2xx
// statuses are errors; an unparsable payload yields an empty list.
func (s *SheetSource) Fetch(ctx context.Context, url string) ([]models.ClientRecord, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptySourceURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("reading source body: %w", err)
	}

	records := Parse(body, resp.Header.Get("Content-Type"), s.logger)

	s.logger.Info("Source loaded",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Int("records", len(records)))

	return records, nil
}

// Parse detects the payload format and converts it to records. It never
// fails: malformed input is logged and gives an empty list.
func Parse(body []byte, contentType string, logger *zap.Logger) []models.ClientRecord {
	var (
		rows [][]string
		err  error
	)
	if isXLSX(body, contentType) {
		rows, err = readXLSX(body)
	} else {
		rows, err = readCSV(body)
	}
	if err != nil {
		logger.Warn("Source payload could not be parsed", zap.Error(err))
		return []models.ClientRecord{}
	}
	return rowsToRecords(rows)
}

func isXLSX(body []byte, contentType string) bool {
	if strings.Contains(contentType, "spreadsheetml") || strings.Contains(contentType, "ms-excel") {
		return true
	}
	// zip local file header
	return bytes.HasPrefix(body, []byte("PK\x03\x04"))
}
