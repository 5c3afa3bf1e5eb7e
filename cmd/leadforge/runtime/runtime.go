// Package runtime assembles the leadforge services from a loaded
// configuration. Commands construct exactly the services they need and
// pass them down explicitly; nothing here is a process-wide singleton.
package runtime

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/config"
	"github.com/leadforgeco/leadforge/pkg/embeddings"
	embeddingutils "github.com/leadforgeco/leadforge/pkg/embeddings/utils"
	"github.com/leadforgeco/leadforge/pkg/generation"
	"github.com/leadforgeco/leadforge/pkg/ingest"
	"github.com/leadforgeco/leadforge/pkg/llm"
	llmutils "github.com/leadforgeco/leadforge/pkg/llm/utils"
	"github.com/leadforgeco/leadforge/pkg/retrieval"
	"github.com/leadforgeco/leadforge/pkg/vector"
	vectorutils "github.com/leadforgeco/leadforge/pkg/vector/utils"
	"github.com/leadforgeco/leadforge/pkg/websearch"
)

// Services bundles the wired service graph for one command invocation.
type Services struct {
	Config    *config.Config
	Embedder  embeddings.Embedder
	Index     *vector.Index
	Pipeline  *ingest.Pipeline
	Retriever *retrieval.Retriever
	Generator *generation.Generator
	LLM       llm.Client

	logger *zap.Logger
}

// LoadConfig resolves the effective configuration for configDir,
// including LEADFORGE_* environment overrides.
func LoadConfig(configDir string) (*config.Config, error) {
	cfg, err := config.ResolveConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// Build wires the full service graph from cfg. Every collaborator is
// constructed here and injected; callers own the result and must Close it.
func Build(cfg *config.Config, logger *zap.Logger) (*Services, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	factory, err := vectorutils.NewFactory(&vectorutils.NewDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		DBPath:       cfg.VectorStore.Path,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store factory: %w", err)
	}

	index, err := vector.NewIndex(vector.IndexConfig{
		Factory:     factory,
		MaxConns:    cfg.VectorStore.MaxConnections,
		IdleTimeout: time.Duration(cfg.VectorStore.IdleTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	chunker, err := ingest.NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Embedder: embedder,
		Index:    index,
		Chunker:  chunker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	var aggregator websearch.Aggregator = websearch.NotConfigured{}
	if cfg.WebSearch.Enabled && cfg.WebSearch.Target != "" {
		aggregator, err = websearch.NewSearXNG(websearch.SearXNGConfig{
			URL:     cfg.WebSearch.Target,
			Engines: cfg.WebSearch.Engines,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating search aggregator: %w", err)
		}
	}

	retriever, err := retrieval.NewRetriever(retrieval.Config{
		Embedder:   embedder,
		Index:      index,
		Aggregator: aggregator,
		Threshold:  cfg.Retrieval.SimilarityThreshold,
		Engines:    cfg.WebSearch.Engines,
		MaxResults: cfg.WebSearch.MaxResults,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	client, err := llmutils.NewClient(&llmutils.NewClientOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	generator, err := generation.NewGenerator(retriever, client, cfg.LLM.MaxContextLength, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	return &Services{
		Config:    cfg,
		Embedder:  embedder,
		Index:     index,
		Pipeline:  pipeline,
		Retriever: retriever,
		Generator: generator,
		LLM:       client,
		logger:    logger,
	}, nil
}

// Close releases every held backend handle.
func (s *Services) Close() error {
	var firstErr error
	if s.LLM != nil {
		if err := s.LLM.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Embedder != nil {
		if err := s.Embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Index != nil {
		if err := s.Index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
