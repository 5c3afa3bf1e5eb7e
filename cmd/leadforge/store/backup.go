package storecmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadforgeco/leadforge/pkg/cliui"
)

const backupLongDesc string = `Write a JSON snapshot of the collection.

The snapshot holds every record's id, content, metadata and embedding,
enough to fully reconstruct the collection elsewhere.

Examples:
  leadforge store backup ./leadforge-backup.json`

const backupShortDesc string = "Write a JSON snapshot of the collection"

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <path>",
		Short: backupShortDesc,
		Long:  backupLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, args[0])
		},
	}

	return cmd
}

func runBackup(cmd *cobra.Command, path string) error {
	index, _, cleanup, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cliui.Step(os.Stdout, fmt.Sprintf("Backing up to %s", path), func() error {
		if !index.Backup(cmd.Context(), path) {
			return fmt.Errorf("backup failed")
		}
		return nil
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Snapshot written to %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(path),
	)
	return nil
}
