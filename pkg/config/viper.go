package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/leadforgeco/leadforge/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the LEADFORGE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the commands)
//  2. Environment variables (LEADFORGE_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("LEADFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ResolveConfig loads the effective configuration for configDir with
// environment overrides applied. This is what commands should use;
// Configer.LoadConfig reads the file alone and backs the get/set commands.
func ResolveConfig(configDir string) (*Config, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	if err := anchorStorePath(cfg, configDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// anchorStorePath resolves a relative vector_store.path against the
// .leadforge/ directory, so every command shares one database no matter
// which directory it runs from. Absolute paths are left alone.
func anchorStorePath(cfg *Config, configDir string) error {
	if cfg.VectorStore.Path == "" || filepath.IsAbs(cfg.VectorStore.Path) {
		return nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving store path: %w", err)
	}

	cfg.VectorStore.Path = filepath.Join(target, cfg.VectorStore.Path)
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_context_length", d.LLM.MaxContextLength)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.path", d.VectorStore.Path)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.max_connections", d.VectorStore.MaxConnections)
	v.SetDefault("vector_store.idle_timeout_sec", d.VectorStore.IdleTimeoutSec)

	v.SetDefault("ingestion.chunk_size", d.Ingestion.ChunkSize)
	v.SetDefault("ingestion.chunk_overlap", d.Ingestion.ChunkOverlap)

	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.similarity_threshold", d.Retrieval.SimilarityThreshold)

	v.SetDefault("web_search.enabled", d.WebSearch.Enabled)
	v.SetDefault("web_search.target", d.WebSearch.Target)
	v.SetDefault("web_search.engines", d.WebSearch.Engines)
	v.SetDefault("web_search.max_results", d.WebSearch.MaxResults)
}
