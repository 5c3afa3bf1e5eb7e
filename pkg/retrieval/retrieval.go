// Package retrieval turns a user query into a ranked set of context chunks,
// with a keyword fallback path and a hybrid merge mode.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/embeddings"
	"github.com/leadforgeco/leadforge/pkg/vector"
	"github.com/leadforgeco/leadforge/pkg/websearch"
)

// Method tags how a retrieval result was produced.
type Method string

const (
	MethodVector   Method = "vector"
	MethodFallback Method = "fallback"
	MethodHybrid   Method = "hybrid"
	MethodNone     Method = "none"
	MethodError    Method = "error"
)

const (
	// DefaultThreshold is the minimum similarity for vector-path chunks.
	DefaultThreshold = 0.7

	// fallbackScore is the default relevance assigned to adapted
	// keyword-search records.
	fallbackScore = 0.5

	// dedupePrefixLen is how much leading content participates in
	// hybrid de-duplication.
	dedupePrefixLen = 100
)

// RetrievalResult is the outcome of one retrieval call.
type RetrievalResult struct {
	Query        string                `json:"query"`
	Chunks       []vector.SearchResult `json:"chunks"`
	Fallback     []websearch.Result    `json:"fallback,omitempty"`
	Method       Method                `json:"method"`
	TotalResults int                   `json:"total_results"`
	Confidence   float64               `json:"confidence"`
	Duration     time.Duration         `json:"duration"`
}

// Retriever resolves queries against the vector index, falling back to an
// external keyword aggregator when the vector path comes up empty.
type Retriever struct {
	embedder   embeddings.Embedder
	index      *vector.Index
	aggregator websearch.Aggregator
	threshold  float64
	engines    []string
	maxResults int
	logger     *zap.Logger
}

// Config holds the retriever's collaborators and tuning.
type Config struct {
	// Embedder embeds queries. Required.
	Embedder embeddings.Embedder

	// Index is the vector index store. Required.
	Index *vector.Index

	// Aggregator is the fallback keyword search. Defaults to
	// websearch.NotConfigured.
	Aggregator websearch.Aggregator

	// Threshold is the minimum similarity for vector-path results
	// (defaults to DefaultThreshold).
	Threshold float64

	// Engines and MaxResults tune the fallback aggregator call.
	Engines    []string
	MaxResults int
}

// NewRetriever creates a retrieval service.
func NewRetriever(c Config, logger *zap.Logger) (*Retriever, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}

	aggregator := c.Aggregator
	if aggregator == nil {
		aggregator = websearch.NotConfigured{}
	}

	threshold := c.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	maxResults := c.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	return &Retriever{
		embedder:   c.Embedder,
		index:      c.Index,
		aggregator: aggregator,
		threshold:  threshold,
		engines:    c.Engines,
		maxResults: maxResults,
		logger:     logger,
	}, nil
}

// NormalizeQuery trims, collapses whitespace and lower-cases a query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Retrieve runs the vector path, then the keyword fallback when the vector
// path is empty and useFallback is set. Failures are recovered into
// method=error; this boundary never returns a Go error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter map[string]string, useFallback bool) RetrievalResult {
	started := time.Now()

	result := RetrievalResult{
		Query:  query,
		Method: MethodNone,
	}

	normalized := NormalizeQuery(query)

	chunks, vectorErr := r.vectorPath(ctx, normalized, topK, filter)
	if len(chunks) > 0 {
		result.Chunks = chunks
		result.Method = MethodVector
		result.TotalResults = len(chunks)
		result.Confidence = vectorConfidence(chunks)
		result.Duration = time.Since(started)
		return result
	}

	var fallbackErr error
	if useFallback {
		var records []websearch.Result
		records, fallbackErr = r.fallbackPath(ctx, normalized)
		if len(records) > 0 {
			result.Fallback = records
			result.Chunks = adaptFallback(records)
			result.Method = MethodFallback
			result.TotalResults = len(records)
			result.Confidence = fallbackScore
			result.Duration = time.Since(started)
			return result
		}
	}

	if vectorErr != nil || fallbackErr != nil {
		result.Method = MethodError
	}
	result.Duration = time.Since(started)
	return result
}

// HybridRetrieve runs the vector and fallback paths unconditionally, merges
// both lists sorted by similarity, and de-duplicates on each chunk's
// leading content. Rank is reassigned after the merge.
func (r *Retriever) HybridRetrieve(ctx context.Context, query string, topK int, filter map[string]string) RetrievalResult {
	started := time.Now()

	result := RetrievalResult{
		Query:  query,
		Method: MethodHybrid,
	}

	normalized := NormalizeQuery(query)

	chunks, vectorErr := r.vectorPath(ctx, normalized, topK, filter)
	records, fallbackErr := r.fallbackPath(ctx, normalized)
	result.Fallback = records

	merged := append(chunks, adaptFallback(records)...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	seen := make(map[string]bool, len(merged))
	deduped := merged[:0]
	for _, c := range merged {
		key := contentKey(c.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}
	for i := range deduped {
		deduped[i].Rank = i + 1
	}

	if len(deduped) == 0 {
		result.Method = MethodNone
		if vectorErr != nil && fallbackErr != nil {
			result.Method = MethodError
		}
		result.Duration = time.Since(started)
		return result
	}

	result.Chunks = deduped
	result.TotalResults = len(deduped)
	result.Confidence = vectorConfidence(deduped)
	result.Duration = time.Since(started)
	return result
}

// vectorPath embeds the query and searches the index, keeping only chunks
// at or above the similarity threshold. An empty embedding means the
// backend was unavailable; the vector path is skipped rather than aborted.
func (r *Retriever) vectorPath(ctx context.Context, query string, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, nil
	}

	hits := r.index.Search(ctx, embedding, topK, filter)

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= r.threshold {
			kept = append(kept, h)
		}
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}

	r.logger.Debug("vector retrieval",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
		zap.Int("above_threshold", len(kept)),
	)

	return kept, nil
}

// fallbackPath delegates to the keyword aggregator. A missing aggregator
// is not a failure, just an empty fallback.
func (r *Retriever) fallbackPath(ctx context.Context, query string) ([]websearch.Result, error) {
	records, err := r.aggregator.Search(ctx, query, r.engines, r.maxResults)
	if err != nil {
		if errors.Is(err, websearch.ErrNotConfigured) {
			r.logger.Debug("fallback search skipped, aggregator not configured")
			return nil, nil
		}
		r.logger.Warn("fallback search failed", zap.Error(err))
		return nil, err
	}
	return records, nil
}

// adaptFallback shapes heterogeneous aggregator records into ranked
// chunk results with the default fallback relevance.
func adaptFallback(records []websearch.Result) []vector.SearchResult {
	chunks := make([]vector.SearchResult, 0, len(records))
	for i, rec := range records {
		metadata := map[string]string{
			"type":   "web_search",
			"title":  rec.Title,
			"source": rec.Source,
			"url":    rec.URL,
		}

		content := rec.Content
		if content == "" {
			content = rec.Title
		}

		chunks = append(chunks, vector.SearchResult{
			Record: vector.Record{
				ID:       uuid.NewString(),
				Content:  content,
				Metadata: metadata,
			},
			Score: fallbackScore,
			Rank:  i + 1,
		})
	}
	return chunks
}

// vectorConfidence is the mean similarity of the kept chunks, boosted 10%
// when three or more are present and capped at 1.0.
func vectorConfidence(chunks []vector.SearchResult) float64 {
	if len(chunks) == 0 {
		return 0
	}

	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	confidence := sum / float64(len(chunks))

	if len(chunks) >= 3 {
		confidence *= 1.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return confidence
}

// contentKey hashes a chunk's leading content for hybrid de-duplication.
func contentKey(content string) string {
	if len(content) > dedupePrefixLen {
		content = content[:dedupePrefixLen]
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
