package ingest_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/ingest"
	"github.com/leadforgeco/leadforge/pkg/vector"
	"github.com/leadforgeco/leadforge/pkg/vector/inmemory"
)

// fakeEmbedder returns a constant vector per text, or fails wholesale.
type fakeEmbedder struct {
	dim   int
	fail  error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	v := make([]float32, f.dim)
	v[0] = 1
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Close() error   { return nil }

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		embedder *fakeEmbedder
		driver   *inmemory.Driver
		index    *vector.Index
		pipeline *ingest.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = &fakeEmbedder{dim: 4}
		driver = inmemory.NewDriver()

		var err error
		index, err = vector.NewIndex(vector.IndexConfig{
			Factory: func() (vector.Driver, error) { return driver, nil },
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		pipeline, err = ingest.NewPipeline(ingest.PipelineConfig{
			Embedder: embedder,
			Index:    index,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("ChunkID", func() {
		It("is deterministic for a document id and index", func() {
			Expect(ingest.ChunkID("doc-1", 0)).To(Equal(ingest.ChunkID("doc-1", 0)))
			Expect(ingest.ChunkID("doc-1", 0)).NotTo(Equal(ingest.ChunkID("doc-1", 1)))
			Expect(ingest.ChunkID("doc-1", 0)).NotTo(Equal(ingest.ChunkID("doc-2", 0)))
		})

		It("is a 16 character hex string", func() {
			id := ingest.ChunkID("doc-1", 3)
			Expect(id).To(HaveLen(16))
			Expect(id).To(MatchRegexp("^[0-9a-f]+$"))
		})
	})

	Describe("Ingest", func() {
		It("ingests a lead into a single embedded chunk", func() {
			doc := &ingest.SourceDocument{
				ID:          "lead-42",
				Kind:        ingest.KindLead,
				Title:       "NorthCell Energy",
				Description: "Solid state battery manufacturer in Trondheim.",
				Summary:     "Series A, strong IP position.",
				Source:      "lead-db",
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.Error).To(BeEmpty())
			Expect(result.TotalChunks).To(Equal(1))
			Expect(result.Chunks).To(HaveLen(1))

			chunk := result.Chunks[0]
			Expect(chunk.ID).To(Equal(ingest.ChunkID("lead-42", 0)))
			Expect(chunk.Content).To(ContainSubstring("NorthCell Energy"))
			Expect(chunk.Content).To(ContainSubstring("Trondheim"))
			Expect(chunk.Embedding).To(HaveLen(4))
			Expect(chunk.Metadata["document_id"]).To(Equal("lead-42"))
			Expect(chunk.Metadata["type"]).To(Equal("lead"))
			Expect(chunk.Metadata["source"]).To(Equal("lead-db"))
			Expect(chunk.Metadata["chunk_index"]).To(Equal("0"))
			Expect(chunk.Metadata["total_chunks"]).To(Equal("1"))

			stored, ok := index.Get(ctx, chunk.ID)
			Expect(ok).To(BeTrue())
			Expect(stored.Content).To(Equal(chunk.Content))
		})

		It("chunks a long paper into multiple overlapping chunks", func() {
			doc := &ingest.SourceDocument{
				ID:       "paper-7",
				Kind:     ingest.KindPaper,
				Title:    "Electrolyte Interfaces",
				Authors:  "Aalto, Birk",
				Abstract: strings.Repeat("The interface remains stable under load. ", 40),
				Body:     strings.Repeat("Cycling data shows negligible capacity fade. ", 60),
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.TotalChunks).To(BeNumerically(">", 1))

			for i, chunk := range result.Chunks {
				Expect(chunk.Index).To(Equal(i))
				Expect(chunk.ID).To(Equal(ingest.ChunkID("paper-7", i)))
				Expect(chunk.TotalChunks).To(Equal(result.TotalChunks))
			}

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(result.TotalChunks))
		})

		It("combines search-history fields in query-first order", func() {
			doc := &ingest.SourceDocument{
				ID:          "search-3",
				Kind:        ingest.KindSearch,
				Query:       "lithium recycling europe",
				Description: "Competitor scan.",
				Title:       "ignored for search kind",
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.Chunks[0].Content).To(HavePrefix("lithium recycling europe"))
			Expect(result.Chunks[0].Content).NotTo(ContainSubstring("ignored"))
		})

		It("treats an untagged document as a lead", func() {
			doc := &ingest.SourceDocument{
				ID:    "untagged-1",
				Title: "Mystery Corp",
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.Chunks[0].Metadata["type"]).To(Equal("lead"))
		})

		It("fails a document with no text content", func() {
			doc := &ingest.SourceDocument{ID: "empty-1", Kind: ingest.KindLead}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeFalse())
			Expect(result.Error).NotTo(BeEmpty())
			Expect(result.TotalChunks).To(Equal(0))

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))
		})

		It("keeps chunks without embeddings when embedding fails", func() {
			embedder.fail = errors.New("model not loaded")

			doc := &ingest.SourceDocument{
				ID:          "lead-9",
				Kind:        ingest.KindLead,
				Title:       "GridScale",
				Description: "Storage integrator.",
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.Chunks).To(HaveLen(1))
			Expect(result.Chunks[0].Embedding).To(BeNil())

			stored, ok := index.Get(ctx, result.Chunks[0].ID)
			Expect(ok).To(BeTrue())
			Expect(stored.Embedding).To(BeNil())
		})

		It("embeds the whole document in one batch call", func() {
			doc := &ingest.SourceDocument{
				ID:    "paper-8",
				Kind:  ingest.KindPaper,
				Title: "Batched",
				Body:  strings.Repeat("A sentence of filler for chunking. ", 120),
			}

			result := pipeline.Ingest(ctx, doc)
			Expect(result.Success).To(BeTrue())
			Expect(result.TotalChunks).To(BeNumerically(">", 1))
			Expect(embedder.calls).To(Equal(1))
		})

		It("is idempotent across re-ingestion", func() {
			doc := &ingest.SourceDocument{
				ID:          "lead-42",
				Kind:        ingest.KindLead,
				Title:       "NorthCell Energy",
				Description: "Solid state battery manufacturer.",
			}

			first := pipeline.Ingest(ctx, doc)
			second := pipeline.Ingest(ctx, doc)
			Expect(first.Chunks[0].ID).To(Equal(second.Chunks[0].ID))

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(first.TotalChunks))
		})
	})
})

var _ = Describe("SourceDocument", func() {
	Describe("CombinedText", func() {
		It("orders paper fields title, authors, abstract, body", func() {
			doc := &ingest.SourceDocument{
				Kind:     ingest.KindPaper,
				Title:    "T",
				Authors:  "A",
				Abstract: "Ab",
				Body:     "B",
			}
			Expect(doc.CombinedText()).To(Equal("T\n\nA\n\nAb\n\nB"))
		})

		It("skips empty fields without extra separators", func() {
			doc := &ingest.SourceDocument{
				Kind:        ingest.KindLead,
				Title:       "T",
				Description: "",
				Summary:     "S",
			}
			Expect(doc.CombinedText()).To(Equal("T\n\nS"))
		})

		It("returns empty when every field is empty", func() {
			doc := &ingest.SourceDocument{Kind: ingest.KindPaper}
			Expect(doc.CombinedText()).To(Equal(""))
		})
	})

	Describe("Metadata", func() {
		It("never lets producer meta overwrite reserved keys", func() {
			doc := &ingest.SourceDocument{
				ID:   "lead-1",
				Kind: ingest.KindLead,
				Meta: map[string]string{
					"type":   "spoofed",
					"region": "nordics",
				},
			}

			m := doc.Metadata()
			Expect(m["type"]).To(Equal("lead"))
			Expect(m["region"]).To(Equal("nordics"))
		})

		It("includes provenance only when present", func() {
			doc := &ingest.SourceDocument{ID: "lead-2", Kind: ingest.KindLead}
			m := doc.Metadata()
			Expect(m).NotTo(HaveKey("source"))
			Expect(m).NotTo(HaveKey("url"))
		})
	})
})
