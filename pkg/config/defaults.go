package config

const (
	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"

	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMModel         = "llama3.1"
	defaultMaxContextLength = 4000

	defaultVectorProvider = "sqlite"
	defaultVectorPath     = "leadforge.db"
	defaultCollection     = "leadforge"
	defaultMaxConnections = 5
	defaultIdleTimeoutSec = 300

	defaultChunkSize    = 1000
	defaultChunkOverlap = 200

	defaultTopK                = 5
	defaultSimilarityThreshold = 0.7

	defaultWebSearchMaxResults = 5
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider:         defaultProvider,
			Target:           defaultTarget,
			Model:            defaultLLMModel,
			MaxContextLength: defaultMaxContextLength,
		},
		VectorStore: VectorStoreConfig{
			Provider:       defaultVectorProvider,
			Path:           defaultVectorPath,
			Collection:     defaultCollection,
			MaxConnections: defaultMaxConnections,
			IdleTimeoutSec: defaultIdleTimeoutSec,
		},
		Ingestion: IngestionConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:                defaultTopK,
			SimilarityThreshold: defaultSimilarityThreshold,
		},
		WebSearch: WebSearchConfig{
			Enabled:    true,
			Engines:    []string{"google", "duckduckgo"},
			MaxResults: defaultWebSearchMaxResults,
		},
	}
}
