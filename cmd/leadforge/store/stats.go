package storecmder

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leadforgeco/leadforge/pkg/cliui"
)

const statsLongDesc string = `Show document counts and index health.

Reports the total record count, a histogram of document kinds sampled
from the collection, the embedding dimensionality and the store status.

Examples:
  leadforge store stats`

const statsShortDesc string = "Show vector store statistics"

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	index, _, cleanup, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := index.Stats(cmd.Context())

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Vector Store"))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("status"), statusValue(stats.Status))
	fmt.Printf("  %s   %s\n", cliui.KeyStyle.Render("count"), cliui.NameStyle.Render(fmt.Sprintf("%d", stats.Count)))
	fmt.Printf("  %s    %s\n", cliui.KeyStyle.Render("dims"), cliui.ValueStyle.Render(fmt.Sprintf("%d", stats.Dimensions)))

	if len(stats.TypeHistogram) > 0 {
		fmt.Printf("\n  %s\n", cliui.HeaderStyle.Render("By kind (sampled)"))
		kinds := make([]string, 0, len(stats.TypeHistogram))
		for k := range stats.TypeHistogram {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %-12s %d\n", k, stats.TypeHistogram[k])
		}
	}

	fmt.Println()
	return nil
}

func statusValue(status string) string {
	if status == "healthy" {
		return cliui.NameStyle.Render(status)
	}
	return cliui.WarnStyle.Render(status)
}
