package ingest

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the character window for one chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the character overlap between adjacent chunks.
	DefaultChunkOverlap = 200

	// sentenceBacktrack bounds how far a window edge walks back looking
	// for a sentence terminator.
	sentenceBacktrack = 100
)

// Chunker splits normalized text into overlapping, sentence-aware windows.
// It is the canonical chunking implementation for the whole pipeline.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// Zero values fall back to the defaults; overlap must stay below size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size == 0 {
		size = DefaultChunkSize
	}
	if overlap == 0 {
		overlap = DefaultChunkOverlap
	}

	if size < 0 {
		return nil, fmt.Errorf("chunk size must be > 0")
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be >= 0 and < chunk size")
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split walks the text in windows of the configured size. When a window's
// right edge falls inside the text, the edge walks back up to
// sentenceBacktrack characters to the nearest sentence terminator so chunks
// prefer to end on sentence boundaries. The next window starts at
// end - overlap; empty windows are discarded.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			low := end - sentenceBacktrack
			if low < start {
				low = start
			}
			for i := end - 1; i >= low; i-- {
				if text[i] == '.' || text[i] == '!' || text[i] == '?' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Degenerate window, skip the overlap to guarantee progress.
			next = end
		}
		start = next
	}

	return chunks
}
