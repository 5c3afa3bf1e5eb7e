// Package storecmder provides the store command for inspecting and
// managing the vector store.
package storecmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/cmd/leadforge/runtime"
	"github.com/leadforgeco/leadforge/pkg/logger"
	"github.com/leadforgeco/leadforge/pkg/vector"
)

const storeLongDesc string = `Inspect and manage the vector store.

Use subcommands to inspect or manage the configured store:
  leadforge store stats             Show document counts and index health
  leadforge store backup <path>     Write a JSON snapshot of the collection
  leadforge store clear             Delete every record in the collection

Examples:
  leadforge store stats
  leadforge store backup ./leadforge-backup.json
  leadforge store clear --yes`

const storeShortDesc string = "Inspect and manage the vector store"

func NewStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: storeShortDesc,
		Long:  storeLongDesc,
	}

	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// openIndex builds just enough of the service graph to reach the index.
func openIndex(cmd *cobra.Command) (*vector.Index, *zap.Logger, func(), error) {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	log := logger.NewLogger(debug)

	cfg, err := runtime.LoadConfig(configDir)
	if err != nil {
		return nil, nil, nil, err
	}

	services, err := runtime.Build(cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building services: %w", err)
	}

	cleanup := func() {
		_ = services.Close()
		_ = log.Sync()
	}
	return services.Index, log, cleanup, nil
}
