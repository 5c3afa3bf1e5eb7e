package generation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/generation"
	"github.com/leadforgeco/leadforge/pkg/retrieval"
	"github.com/leadforgeco/leadforge/pkg/vector"
	"github.com/leadforgeco/leadforge/pkg/vector/inmemory"
)

// fakeLLM records the prompt and returns a canned answer.
type fakeLLM struct {
	answer string
	fail   error
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.fail != nil {
		return "", f.fail
	}
	return f.answer, nil
}

func (f *fakeLLM) Model() string { return "test-model" }
func (f *fakeLLM) Close() error  { return nil }

// fakeEmbedder embeds every text as a fixed unit vector.
type fakeEmbedder struct{ vec []float32 }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, nil }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }
func (f *fakeEmbedder) Close() error   { return nil }

func chunk(id, content string, score float64, rank int) vector.SearchResult {
	return vector.SearchResult{
		Record: vector.Record{
			ID:       id,
			Content:  content,
			Metadata: map[string]string{"title": "Title " + id, "source": "lead-db"},
		},
		Score: score,
		Rank:  rank,
	}
}

var _ = Describe("Generator", func() {
	var (
		ctx       context.Context
		llmClient *fakeLLM
		index     *vector.Index
		retriever *retrieval.Retriever
	)

	newGenerator := func(maxContextLength int) *generation.Generator {
		g, err := generation.NewGenerator(retriever, llmClient, maxContextLength, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	BeforeEach(func() {
		ctx = context.Background()
		llmClient = &fakeLLM{answer: "A grounded answer."}

		driver := inmemory.NewDriver()
		var err error
		index, err = vector.NewIndex(vector.IndexConfig{
			Factory: func() (vector.Driver, error) { return driver, nil },
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		retriever, err = retrieval.NewRetriever(retrieval.Config{
			Embedder: &fakeEmbedder{vec: []float32{1, 0, 0}},
			Index:    index,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GenerateWithContext", func() {
		It("answers with the supplied context at fixed confidence", func() {
			chunks := []vector.SearchResult{chunk("c1", "NorthCell raised a series A.", 0.9, 1)}

			result := newGenerator(0).GenerateWithContext(ctx, "who raised?", chunks)
			Expect(result.Answer).To(Equal("A grounded answer."))
			Expect(result.Error).To(BeEmpty())
			Expect(result.Confidence).To(Equal(0.8))
			Expect(result.RetrievalMethod).To(Equal("custom"))
			Expect(result.ContextUsed).To(Equal(1))
			Expect(result.Model).To(Equal("test-model"))
		})

		It("includes rank, similarity, title and source in the prompt", func() {
			chunks := []vector.SearchResult{chunk("c1", "NorthCell raised a series A.", 0.87, 1)}

			newGenerator(0).GenerateWithContext(ctx, "who raised?", chunks)
			Expect(llmClient.prompt).To(ContainSubstring("[1]"))
			Expect(llmClient.prompt).To(ContainSubstring("0.87"))
			Expect(llmClient.prompt).To(ContainSubstring("Title c1 | lead-db"))
			Expect(llmClient.prompt).To(ContainSubstring("NorthCell raised a series A."))
			Expect(llmClient.prompt).To(ContainSubstring("Question: who raised?"))
		})

		It("instructs the model to ground, admit gaps, cite, and stay concise", func() {
			chunks := []vector.SearchResult{chunk("c1", "content", 0.9, 1)}

			newGenerator(0).GenerateWithContext(ctx, "q", chunks)
			Expect(llmClient.prompt).To(ContainSubstring("Ground every claim"))
			Expect(llmClient.prompt).To(ContainSubstring("does not contain the answer"))
			Expect(llmClient.prompt).To(ContainSubstring("Cite sources by title"))
			Expect(llmClient.prompt).To(ContainSubstring("Be concise."))
		})

		It("caps the context block at five chunks", func() {
			var chunks []vector.SearchResult
			for i := 0; i < 8; i++ {
				chunks = append(chunks, chunk(fmt.Sprintf("c%d", i), "content", 0.9, i+1))
			}

			result := newGenerator(0).GenerateWithContext(ctx, "q", chunks)
			Expect(result.ContextUsed).To(Equal(5))
			Expect(llmClient.prompt).NotTo(ContainSubstring("Title c5"))
		})

		It("truncates only the context block when over budget", func() {
			long := strings.Repeat("Relevant sentence about the lead. ", 50)
			chunks := []vector.SearchResult{chunk("c1", long, 0.9, 1)}

			result := newGenerator(700).GenerateWithContext(ctx, "the question", chunks)
			Expect(result.Error).To(BeEmpty())
			Expect(len(llmClient.prompt)).To(BeNumerically("<=", 700))
			Expect(llmClient.prompt).To(ContainSubstring("Question: the question"))
			Expect(llmClient.prompt).To(ContainSubstring("Context:"))
			Expect(llmClient.prompt).To(HaveSuffix("[context truncated]"))
		})

		It("leaves a short prompt untouched", func() {
			chunks := []vector.SearchResult{chunk("c1", "short", 0.9, 1)}

			newGenerator(4000).GenerateWithContext(ctx, "q", chunks)
			Expect(llmClient.prompt).NotTo(ContainSubstring("[context truncated]"))
		})

		It("reports an error without context", func() {
			result := newGenerator(0).GenerateWithContext(ctx, "q", nil)
			Expect(result.Error).NotTo(BeEmpty())
			Expect(result.Answer).To(ContainSubstring("unable to generate"))
			Expect(result.ContextUsed).To(Equal(0))
			Expect(llmClient.prompt).To(BeEmpty())
		})

		It("substitutes a fixed message for an empty model response", func() {
			llmClient.answer = "   \n"
			chunks := []vector.SearchResult{chunk("c1", "content", 0.9, 1)}

			result := newGenerator(0).GenerateWithContext(ctx, "q", chunks)
			Expect(result.Answer).To(ContainSubstring("unable to generate"))
			Expect(result.Error).NotTo(BeEmpty())
		})

		It("reports a model failure inside the result", func() {
			llmClient.fail = errors.New("model crashed")
			chunks := []vector.SearchResult{chunk("c1", "content", 0.9, 1)}

			result := newGenerator(0).GenerateWithContext(ctx, "q", chunks)
			Expect(result.Answer).To(ContainSubstring("unable to generate"))
			Expect(result.Error).To(ContainSubstring("model crashed"))
		})
	})

	Describe("Generate", func() {
		It("retrieves context and reports the retrieval method", func() {
			Expect(index.Upsert(ctx, []vector.Record{{
				ID:        "chunk-1",
				Content:   "NorthCell battery lead.",
				Metadata:  map[string]string{"type": "lead", "title": "NorthCell"},
				Embedding: []float32{1, 0, 0},
			}})).To(BeTrue())

			result := newGenerator(0).Generate(ctx, "battery leads", 5, false)
			Expect(result.Answer).To(Equal("A grounded answer."))
			Expect(result.RetrievalMethod).To(Equal("vector"))
			Expect(result.ContextUsed).To(Equal(1))
			Expect(result.Confidence).To(BeNumerically(">", 0))
			Expect(llmClient.prompt).To(ContainSubstring("NorthCell battery lead."))
		})

		It("reports no context when retrieval comes up empty", func() {
			result := newGenerator(0).Generate(ctx, "nothing indexed", 5, false)
			Expect(result.Answer).To(ContainSubstring("unable to generate"))
			Expect(result.Error).NotTo(BeEmpty())
			Expect(result.RetrievalMethod).To(Equal("none"))
		})
	})
})
