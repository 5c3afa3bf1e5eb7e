// Package embeddings provides text embedding capabilities for the pipeline.
package embeddings

import (
	"context"
	"math"
)

// Embedder converts text into fixed-length vector embeddings.
type Embedder interface {
	// Embed converts text into a vector embedding. Empty or whitespace-only
	// text yields a nil vector without a model call.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts into embeddings in a single model
	// call. The returned slice is index-aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimensionality of the configured model.
	Dimension() int

	// Close releases any resources held by the embedder.
	Close() error
}

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths or zero-magnitude vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
