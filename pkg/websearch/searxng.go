package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SearXNG is an Aggregator backed by a SearXNG metasearch instance's
// JSON API.
type SearXNG struct {
	baseURL    string
	engines    []string
	httpClient *http.Client
	logger     *zap.Logger
}

// SearXNGConfig holds configuration for the SearXNG client.
type SearXNGConfig struct {
	// URL is the SearXNG instance URL (e.g., "http://localhost:8888").
	URL string

	// Engines is the default engine list when a search names none.
	Engines []string
}

// searxngResponse is the JSON API response envelope.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

// NewSearXNG creates an aggregator client for a SearXNG instance.
func NewSearXNG(cfg SearXNGConfig, logger *zap.Logger) (*SearXNG, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("searxng URL is required")
	}

	return &SearXNG{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		engines: cfg.Engines,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// Search runs the query through the instance's /search JSON endpoint.
func (s *SearXNG) Search(ctx context.Context, query string, engines []string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if len(engines) == 0 {
		engines = s.engines
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if len(engines) > 0 {
		params.Set("engines", strings.Join(engines, ","))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("searxng returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	for _, r := range searchResp.Results {
		results = append(results, Result{
			Title:   r.Title,
			Content: r.Content,
			URL:     r.URL,
			Source:  r.Engine,
		})
		if len(results) == maxResults {
			break
		}
	}

	s.logger.Debug("aggregated web search",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Ensure SearXNG implements Aggregator
var _ Aggregator = (*SearXNG)(nil)
