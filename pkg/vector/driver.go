// Package vector provides interfaces and implementations for vector storage
// and similarity search over ingested document chunks.
package vector

import (
	"context"
	"time"
)

// Record is the persisted form of a chunk inside the vector index.
type Record struct {
	// ID is a unique identifier for the record (the deterministic chunk id).
	ID string

	// Content is the chunk's text.
	Content string

	// Metadata carries the parent document's metadata so a record is
	// self-describing (type tag, source, url, document id, title, ...).
	Metadata map[string]string

	// Embedding is the vector representation of the content.
	// Nil when embedding was unavailable at ingestion time.
	Embedding []float32
}

// SearchResult is a Record annotated with a similarity score and a 1-based
// rank within a single query's results.
type SearchResult struct {
	Record

	// Score is the similarity score in [0, 1] (higher = more similar).
	Score float64

	// Rank is the 1-based position within the query's ranked results.
	Rank int
}

// Stats summarizes the state of the vector index.
type Stats struct {
	Count         int            `json:"count"`
	TypeHistogram map[string]int `json:"type_histogram"`
	Dimensions    int            `json:"dimensions"`
	Status        string         `json:"status"`
}

// Snapshot is the backup format: four parallel arrays plus a timestamp,
// sufficient to fully reconstruct the collection.
type Snapshot struct {
	IDs        []string            `json:"ids"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
	Embeddings [][]float32         `json:"embeddings"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Driver is the collection abstraction over a single persistence-layer
// handle. Implementations must be safe for concurrent use: the pooled
// Index may hand the same handle to several callers at once, and only the
// pool bookkeeping itself is serialized.
type Driver interface {
	// Upsert stores records, overwriting any record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query finds the topK most similar records to the given embedding,
	// restricted to records whose metadata contains every filter pair.
	// Scores are similarities in [0, 1]; implementations convert their
	// native distance metric.
	Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]SearchResult, error)

	// Get retrieves records by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Record, error)

	// Delete removes records by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Peek returns up to limit records; limit <= 0 returns the full
	// collection (used for stats sampling and backup export).
	Peek(ctx context.Context, limit int) ([]Record, error)

	// Ping checks that the underlying handle is healthy.
	Ping(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
