package storecmder

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadforgeco/leadforge/pkg/cliui"
)

const clearLongDesc string = `Delete every record in the collection.

Prompts for confirmation unless --yes is given. This cannot be undone;
take a backup first if the data matters.

Examples:
  leadforge store clear
  leadforge store clear --yes`

const clearShortDesc string = "Delete every record in the collection"

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runClear(cmd *cobra.Command, yes bool) error {
	if !yes {
		fmt.Print("This deletes every record in the collection. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	index, _, cleanup, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cliui.Step(os.Stdout, "Clearing collection", func() error {
		if !index.Clear(cmd.Context()) {
			return fmt.Errorf("clear failed")
		}
		return nil
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Collection cleared\n\n", cliui.SuccessMark)
	return nil
}
