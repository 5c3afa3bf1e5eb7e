package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent leadforge configuration stored as
// config.toml in the .leadforge/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Ingestion   IngestionConfig   `toml:"ingestion"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	WebSearch   WebSearchConfig   `toml:"web_search"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds language-model backend settings.
type LLMConfig struct {
	Provider         string `toml:"provider,omitempty"`
	Target           string `toml:"target,omitempty"`
	Model            string `toml:"model,omitempty"`
	MaxContextLength int    `toml:"max_context_length,omitempty"`
}

// VectorStoreConfig holds vector index settings, including the connection
// pool limits for the persistence layer.
type VectorStoreConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Target         string `toml:"target,omitempty"`
	Path           string `toml:"path,omitempty"`
	Collection     string `toml:"collection,omitempty"`
	MaxConnections int    `toml:"max_connections,omitempty"`
	IdleTimeoutSec int    `toml:"idle_timeout_sec,omitempty"`
}

// IngestionConfig holds document chunking settings.
type IngestionConfig struct {
	ChunkSize    int `toml:"chunk_size,omitempty"`
	ChunkOverlap int `toml:"chunk_overlap,omitempty"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK                int     `toml:"top_k,omitempty"`
	SimilarityThreshold float64 `toml:"similarity_threshold,omitempty"`
}

// WebSearchConfig holds settings for the fallback search aggregator.
type WebSearchConfig struct {
	Enabled    bool     `toml:"enabled,omitempty"`
	Target     string   `toml:"target,omitempty"`
	Engines    []string `toml:"engines,omitempty"`
	MaxResults int      `toml:"max_results,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.max_context_length": {
		get: func(c *Config) string { return intKey(c.LLM.MaxContextLength) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.LLM.MaxContextLength, "llm.max_context_length", v)
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"vector_store.max_connections": {
		get: func(c *Config) string { return intKey(c.VectorStore.MaxConnections) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.VectorStore.MaxConnections, "vector_store.max_connections", v)
		},
	},
	"vector_store.idle_timeout_sec": {
		get: func(c *Config) string { return intKey(c.VectorStore.IdleTimeoutSec) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.VectorStore.IdleTimeoutSec, "vector_store.idle_timeout_sec", v)
		},
	},
	"ingestion.chunk_size": {
		get: func(c *Config) string { return intKey(c.Ingestion.ChunkSize) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.Ingestion.ChunkSize, "ingestion.chunk_size", v)
		},
	},
	"ingestion.chunk_overlap": {
		get: func(c *Config) string { return intKey(c.Ingestion.ChunkOverlap) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.Ingestion.ChunkOverlap, "ingestion.chunk_overlap", v)
		},
	},
	"retrieval.top_k": {
		get: func(c *Config) string { return intKey(c.Retrieval.TopK) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.Retrieval.TopK, "retrieval.top_k", v)
		},
	},
	"retrieval.similarity_threshold": {
		get: func(c *Config) string {
			if c.Retrieval.SimilarityThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Retrieval.SimilarityThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.similarity_threshold: %w", err)
			}
			c.Retrieval.SimilarityThreshold = f
			return nil
		},
	},
	"web_search.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.WebSearch.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for web_search.enabled: %w", err)
			}
			c.WebSearch.Enabled = b
			return nil
		},
	},
	"web_search.target": {
		get: func(c *Config) string { return c.WebSearch.Target },
		set: func(c *Config, v string) error { c.WebSearch.Target = v; return nil },
	},
	"web_search.engines": {
		get: func(c *Config) string { return strings.Join(c.WebSearch.Engines, ",") },
		set: func(c *Config, v string) error {
			c.WebSearch.Engines = nil
			for _, e := range strings.Split(v, ",") {
				if e = strings.TrimSpace(e); e != "" {
					c.WebSearch.Engines = append(c.WebSearch.Engines, e)
				}
			}
			return nil
		},
	},
	"web_search.max_results": {
		get: func(c *Config) string { return intKey(c.WebSearch.MaxResults) },
		set: func(c *Config, v string) error {
			return setIntKey(&c.WebSearch.MaxResults, "web_search.max_results", v)
		},
	},
}

func intKey(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func setIntKey(dst *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = n
	return nil
}
