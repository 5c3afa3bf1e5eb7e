// Package websearch provides the keyword/metadata fallback search
// aggregator consumed by the retrieval service.
package websearch

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the NotConfigured aggregator variant.
var ErrNotConfigured = errors.New("web search aggregator not configured")

// Result is one heterogeneous record from an aggregated keyword search.
type Result struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
}

// Aggregator fans a query out to external keyword/metadata search engines.
type Aggregator interface {
	// Search runs the query against the given engines (empty means the
	// aggregator's defaults) and returns at most maxResults records.
	Search(ctx context.Context, query string, engines []string, maxResults int) ([]Result, error)
}

// NotConfigured satisfies Aggregator for deployments without a fallback
// search backend; every call fails with ErrNotConfigured.
type NotConfigured struct{}

func (NotConfigured) Search(context.Context, string, []string, int) ([]Result, error) {
	return nil, ErrNotConfigured
}
