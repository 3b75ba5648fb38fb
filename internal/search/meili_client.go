// Package search keeps a Meilisearch index of the current client list.
package search

import (
	"fmt"

	ms "github.com/meilisearch/meilisearch-go"
)

// ClientWrapper is the subset of Meilisearch calls the index needs
type ClientWrapper struct {
	cli ms.ServiceManager
}

// NewClientWrapper creates new Meilisearch client wrapper
func NewClientWrapper(url, key string) *ClientWrapper {
	client := ms.New(url, ms.WithAPIKey(key))
	return &ClientWrapper{
		cli: client,
	}
}

// Healthy pings the server
func (c *ClientWrapper) Healthy() bool {
	return c.cli.IsHealthy()
}

// SearchIndex runs q against index with an optional filter
func (c *ClientWrapper) SearchIndex(index string, q string, filter string, limit int64) (*ms.SearchResponse, error) {
	req := &ms.SearchRequest{
		Limit: limit,
	}
	if filter != "" {
		req.Filter = filter
	}
	return c.cli.Index(index).Search(q, req)
}

// Configure sets searchable and filterable attributes
func (c *ClientWrapper) Configure(index string, searchable, filterable []string) (int64, error) {
	task, err := c.cli.Index(index).UpdateSettings(&ms.Settings{
		SearchableAttributes: searchable,
		FilterableAttributes: filterable,
	})
	if err != nil {
		return 0, fmt.Errorf("configuring index %s: %w", index, err)
	}
	return task.TaskUID, nil
}

// ReplaceDocuments drops every document of index and adds docs in chunks
func (c *ClientWrapper) ReplaceDocuments(index string, docs []map[string]interface{}, chunk int) error {
	idx := c.cli.Index(index)

	if _, err := idx.DeleteAllDocuments(); err != nil {
		return fmt.Errorf("clearing index %s: %w", index, err)
	}

	for i := 0; i < len(docs); i += chunk {
		end := min(i+chunk, len(docs))
		if _, err := idx.AddDocuments(docs[i:end], "id"); err != nil {
			return fmt.Errorf("adding documents %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// FilterLocated restricts results to records with or without a coordinate
func FilterLocated(located bool) string {
	return fmt.Sprintf("located = %t", located)
}
