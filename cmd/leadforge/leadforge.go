// Package leadforgecmder
package leadforgecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/leadforgeco/leadforge/cmd/leadforge/ask"
	configcmder "github.com/leadforgeco/leadforge/cmd/leadforge/config"
	ingestcmder "github.com/leadforgeco/leadforge/cmd/leadforge/ingest"
	initcmder "github.com/leadforgeco/leadforge/cmd/leadforge/init"
	querycmder "github.com/leadforgeco/leadforge/cmd/leadforge/query"
	storecmder "github.com/leadforgeco/leadforge/cmd/leadforge/store"
	versioncmder "github.com/leadforgeco/leadforge/cmd/version"
)

const leadforgeLongDesc string = `Leadforge is retrieval-augmented research for lead discovery.

Ingest leads, papers and search findings into a vector index, then query it:
  leadforge ingest <file>...   Ingest documents into the index
  leadforge query <text>       Retrieve the most relevant chunks
  leadforge ask <question>     Generate a grounded answer
  leadforge store              Inspect and manage the vector store`

const leadforgeShortDesc string = "Leadforge - Lead Discovery Research"

func NewLeadforgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadforge",
		Short: leadforgeShortDesc,
		Long:  leadforgeLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (defaults to .leadforge/)")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(storecmder.NewStoreCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
