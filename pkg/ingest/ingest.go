package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/embeddings"
	"github.com/leadforgeco/leadforge/pkg/vector"
)

// chunkIDLen is the hex length of a deterministic chunk id.
const chunkIDLen = 16

// Chunk is a bounded span of a document's normalized text, the unit of
// embedding and retrieval.
type Chunk struct {
	// ID is deterministic, derived from (document id, chunk index), so
	// re-ingesting an unchanged document upserts in place.
	ID string `json:"id"`

	// Content is the chunk's text.
	Content string `json:"content"`

	// Metadata is a copy of the parent document's metadata plus the
	// chunk's position, so a chunk is self-describing.
	Metadata map[string]string `json:"metadata"`

	// Embedding is nil when the embedding backend was unavailable.
	Embedding []float32 `json:"embedding,omitempty"`

	// Index is the chunk's position within the parent document.
	Index int `json:"index"`

	// TotalChunks is the parent document's chunk count.
	TotalChunks int `json:"total_chunks"`
}

// IngestionResult is the outcome of ingesting one source document.
type IngestionResult struct {
	DocumentID  string        `json:"document_id"`
	Chunks      []Chunk       `json:"chunks"`
	TotalChunks int           `json:"total_chunks"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// Pipeline turns source documents into embedded chunks and persists them
// in the vector index.
type Pipeline struct {
	embedder embeddings.Embedder
	index    *vector.Index
	chunker  *Chunker
	logger   *zap.Logger
}

// PipelineConfig holds the pipeline's collaborators.
type PipelineConfig struct {
	// Embedder generates chunk embeddings. Required.
	Embedder embeddings.Embedder

	// Index persists chunk records. Required.
	Index *vector.Index

	// Chunker splits normalized text. Defaults to NewChunker defaults.
	Chunker *Chunker
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(c PipelineConfig, logger *zap.Logger) (*Pipeline, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}

	chunker := c.Chunker
	if chunker == nil {
		var err error
		chunker, err = NewChunker(0, 0)
		if err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		embedder: c.Embedder,
		index:    c.Index,
		chunker:  chunker,
		logger:   logger,
	}, nil
}

// ChunkID derives the deterministic id for a document's chunk from a
// content hash of (document id, chunk index), truncated to a short fixed
// length.
func ChunkID(documentID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", documentID, index)))
	return hex.EncodeToString(sum[:])[:chunkIDLen]
}

// Ingest normalizes, chunks, embeds and stores one source document.
// Success is false only when normalization yields no chunks at all; a
// chunk whose embedding fails is kept without one, and a store failure is
// logged without failing the document.
func (p *Pipeline) Ingest(ctx context.Context, doc *SourceDocument) IngestionResult {
	started := time.Now()

	result := IngestionResult{DocumentID: doc.ID}

	combined := doc.CombinedText()
	if combined == "" {
		result.Duration = time.Since(started)
		result.Error = "document has no text content"
		p.logger.Warn("ingestion skipped, empty document",
			zap.String("document_id", doc.ID),
		)
		return result
	}

	texts := p.chunker.Split(Normalize(combined))
	if len(texts) == 0 {
		result.Duration = time.Since(started)
		result.Error = "normalization yielded no chunks"
		return result
	}

	// One batch call amortizes model-loading overhead across the document.
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		// Chunks are kept without embeddings rather than dropped, so a
		// transient model failure never silently loses content.
		p.logger.Warn("batch embedding failed, chunks kept unembedded",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		vectors = make([][]float32, len(texts))
	}

	metadata := doc.Metadata()
	total := len(texts)

	chunks := make([]Chunk, 0, total)
	records := make([]vector.Record, 0, total)
	for i, text := range texts {
		chunkMeta := make(map[string]string, len(metadata)+2)
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		chunkMeta["chunk_index"] = strconv.Itoa(i)
		chunkMeta["total_chunks"] = strconv.Itoa(total)

		chunk := Chunk{
			ID:          ChunkID(doc.ID, i),
			Content:     text,
			Metadata:    chunkMeta,
			Embedding:   vectors[i],
			Index:       i,
			TotalChunks: total,
		}
		chunks = append(chunks, chunk)

		records = append(records, vector.Record{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: chunk.Embedding,
		})
	}

	if !p.index.Upsert(ctx, records) {
		p.logger.Error("storing chunks failed",
			zap.String("document_id", doc.ID),
			zap.Int("chunks", len(records)),
		)
	}

	result.Chunks = chunks
	result.TotalChunks = total
	result.Success = true
	result.Duration = time.Since(started)

	p.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("kind", string(doc.kind())),
		zap.Int("chunks", total),
		zap.Duration("duration", result.Duration),
	)

	return result
}
