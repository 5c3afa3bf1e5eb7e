// Package generation composes retrieved context into a grounded prompt and
// produces an answer with the configured language model.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/llm"
	"github.com/leadforgeco/leadforge/pkg/retrieval"
	"github.com/leadforgeco/leadforge/pkg/vector"
)

const (
	// DefaultMaxContextLength bounds the full prompt in characters.
	DefaultMaxContextLength = 4000

	// maxContextChunks is how many retrieved chunks make it into the
	// prompt's context block.
	maxContextChunks = 5

	// customContextConfidence is reported when the caller supplies the
	// context directly instead of going through retrieval.
	customContextConfidence = 0.8

	// contextMarker separates the fixed prompt head from the
	// truncatable context block.
	contextMarker = "Context:\n"

	truncationNotice = "\n[context truncated]"

	emptyAnswer = "I was unable to generate an answer for this query."
)

// GenerationResult is the outcome of one answer generation.
type GenerationResult struct {
	Query           string        `json:"query"`
	Answer          string        `json:"answer"`
	ContextUsed     int           `json:"context_used"`
	Confidence      float64       `json:"confidence"`
	Model           string        `json:"model"`
	RetrievalMethod string        `json:"retrieval_method"`
	Duration        time.Duration `json:"duration"`
	Error           string        `json:"error,omitempty"`
}

// Generator wires retrieval to a language model.
type Generator struct {
	retriever        *retrieval.Retriever
	client           llm.Client
	maxContextLength int
	logger           *zap.Logger
}

// NewGenerator creates a generation service. maxContextLength <= 0 selects
// the default prompt budget.
func NewGenerator(retriever *retrieval.Retriever, client llm.Client, maxContextLength int, logger *zap.Logger) (*Generator, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}

	return &Generator{
		retriever:        retriever,
		client:           client,
		maxContextLength: maxContextLength,
		logger:           logger,
	}, nil
}

// Generate retrieves context for the query and asks the model for an
// answer. Failures are reported inside the result rather than raised.
func (g *Generator) Generate(ctx context.Context, query string, topK int, useHybrid bool) GenerationResult {
	started := time.Now()

	var retrieved retrieval.RetrievalResult
	if useHybrid {
		retrieved = g.retriever.HybridRetrieve(ctx, query, topK, nil)
	} else {
		retrieved = g.retriever.Retrieve(ctx, query, topK, nil, true)
	}

	result := g.answer(ctx, query, retrieved.Chunks)
	result.Confidence = retrieved.Confidence
	result.RetrievalMethod = string(retrieved.Method)
	result.Duration = time.Since(started)

	g.logger.Info("generated answer",
		zap.String("query", query),
		zap.String("method", result.RetrievalMethod),
		zap.Int("context_used", result.ContextUsed),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// GenerateWithContext answers using caller-supplied chunks, skipping
// retrieval entirely.
func (g *Generator) GenerateWithContext(ctx context.Context, query string, chunks []vector.SearchResult) GenerationResult {
	started := time.Now()

	result := g.answer(ctx, query, chunks)
	result.Confidence = customContextConfidence
	result.RetrievalMethod = "custom"
	result.Duration = time.Since(started)

	return result
}

func (g *Generator) answer(ctx context.Context, query string, chunks []vector.SearchResult) GenerationResult {
	result := GenerationResult{
		Query: query,
		Model: g.client.Model(),
	}

	if len(chunks) == 0 {
		result.Answer = emptyAnswer
		result.Error = "no context available for query"
		return result
	}

	used := chunks
	if len(used) > maxContextChunks {
		used = used[:maxContextChunks]
	}
	result.ContextUsed = len(used)

	prompt := g.buildPrompt(query, used)

	answer, err := g.client.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("llm generation failed", zap.Error(err))
		result.Answer = emptyAnswer
		result.Error = err.Error()
		return result
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		result.Answer = emptyAnswer
		result.Error = "model returned an empty response"
		return result
	}

	result.Answer = answer
	return result
}

// buildPrompt assembles the fixed prompt head followed by the context
// block. When the budget is exceeded only the context block is cut, so the
// framing, instructions and query always survive intact.
func (g *Generator) buildPrompt(query string, chunks []vector.SearchResult) string {
	var head strings.Builder
	head.WriteString("You are a research assistant for a lead discovery platform. ")
	head.WriteString("Answer the question using only the provided context.\n\n")
	head.WriteString("Instructions:\n")
	head.WriteString("- Ground every claim in the context below.\n")
	head.WriteString("- If the context does not contain the answer, say so plainly.\n")
	head.WriteString("- Cite sources by title when available.\n")
	head.WriteString("- Be concise.\n\n")
	head.WriteString("Question: ")
	head.WriteString(query)
	head.WriteString("\n\n")
	head.WriteString(contextMarker)

	var block strings.Builder
	for _, c := range chunks {
		title := c.Metadata["title"]
		if title == "" {
			title = "untitled"
		}
		source := c.Metadata["source"]
		if source == "" {
			source = "unknown"
		}

		fmt.Fprintf(&block, "[%d] (similarity %.2f) %s | %s\n%s\n\n",
			c.Rank, c.Score, title, source, c.Content)
	}

	prompt := head.String() + block.String()
	if len(prompt) <= g.maxContextLength {
		return prompt
	}

	budget := g.maxContextLength - head.Len() - len(truncationNotice)
	if budget < 0 {
		budget = 0
	}
	context := block.String()
	if len(context) > budget {
		context = context[:budget]
	}

	return head.String() + context + truncationNotice
}
