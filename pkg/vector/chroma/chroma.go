// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for lead-discovery chunks.
	DefaultCollectionName = "leadforge"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewDriver creates a new Chroma vector driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := d.getOrCreateCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

func (d *Driver) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s%s",
		d.baseURL, d.collectionID, suffix)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s", d.baseURL, d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", d.baseURL)
	var collection chromaCollection
	if err := d.postJSON(ctx, createURL, map[string]string{"name": d.collectionName}, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// postJSON issues a POST with a JSON body and optionally decodes the response.
func (d *Driver) postJSON(ctx context.Context, url string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Upsert stores records, overwriting existing ids.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	reqBody := chromaAddRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
		Documents:  make([]string, len(records)),
	}

	for i, rec := range records {
		reqBody.IDs[i] = rec.ID
		reqBody.Embeddings[i] = rec.Embedding
		reqBody.Documents[i] = rec.Content
		reqBody.Metadatas[i] = toAnyMap(rec.Metadata)
	}

	if err := d.postJSON(ctx, d.collectionURL("/upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("upserting records: %w", err)
	}

	d.logger.Debug("upserted records into chroma",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar records to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}
	if len(filter) > 0 {
		reqBody.Where = whereClause(filter)
	}

	var queryResp chromaQueryResponse
	if err := d.postJSON(ctx, d.collectionURL("/query"), reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	var results []vector.SearchResult

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.SearchResult{
			Record: vector.Record{ID: id},
		}

		if i < len(documents) {
			result.Content = documents[i]
		}
		if i < len(metadatas) {
			result.Metadata = toStringMap(metadatas[i])
		}

		// Convert distance to similarity: lower distance = higher similarity
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Get retrieves records by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return d.get(ctx, chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	})
}

// Peek returns up to limit records; limit <= 0 returns the full collection.
func (d *Driver) Peek(ctx context.Context, limit int) ([]vector.Record, error) {
	req := chromaGetRequest{
		Include: []string{"documents", "metadatas", "embeddings"},
	}
	if limit > 0 {
		req.Limit = limit
	}
	return d.get(ctx, req)
}

func (d *Driver) get(ctx context.Context, reqBody chromaGetRequest) ([]vector.Record, error) {
	var getResp chromaGetResponse
	if err := d.postJSON(ctx, d.collectionURL("/get"), reqBody, &getResp); err != nil {
		return nil, fmt.Errorf("getting records: %w", err)
	}

	records := make([]vector.Record, len(getResp.IDs))
	for i, id := range getResp.IDs {
		records[i] = vector.Record{ID: id}

		if i < len(getResp.Documents) {
			records[i].Content = getResp.Documents[i]
		}
		if i < len(getResp.Metadatas) {
			records[i].Metadata = toStringMap(getResp.Metadatas[i])
		}
		if i < len(getResp.Embeddings) {
			records[i].Embedding = getResp.Embeddings[i]
		}
	}

	return records, nil
}

// Delete removes records by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.postJSON(ctx, d.collectionURL("/delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	d.logger.Debug("deleted records from chroma",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", d.collectionURL("/count"), nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending count request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to count: status %d: %s", resp.StatusCode, string(body))
	}

	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}

	return count, nil
}

// Ping checks the Chroma server heartbeat.
func (d *Driver) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", d.baseURL+"/api/v2/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("creating heartbeat request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: heartbeat status %d", vector.ErrConnection, resp.StatusCode)
	}

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// whereClause builds a Chroma where filter from metadata equality pairs.
func whereClause(filter map[string]string) map[string]any {
	if len(filter) == 1 {
		for k, v := range filter {
			return map[string]any{k: v}
		}
	}

	clauses := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		clauses = append(clauses, map[string]any{k: v})
	}
	return map[string]any{"$and": clauses}
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toStringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if v != nil {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
