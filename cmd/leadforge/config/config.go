// Package configcmder provides the config command for managing persistent
// leadforge configuration stored in the .leadforge/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent leadforge configuration.

Configuration is stored as config.toml in the .leadforge/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model, llm.max_context_length,
  vector_store.provider, vector_store.target, vector_store.path,
  vector_store.collection, vector_store.max_connections,
  vector_store.idle_timeout_sec,
  ingestion.chunk_size, ingestion.chunk_overlap,
  retrieval.top_k, retrieval.similarity_threshold,
  web_search.enabled, web_search.target, web_search.engines,
  web_search.max_results

Use subcommands to get, set, or list configuration values:
  leadforge config set <key> <value>    Set a configuration value
  leadforge config get <key>            Get a configuration value
  leadforge config list                 List all configuration values

Examples:
  leadforge config set embedding.model nomic-embed-text
  leadforge config set vector_store.provider qdrant
  leadforge config get retrieval.similarity_threshold
  leadforge config list`

const configShortDesc string = "Manage persistent leadforge configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
