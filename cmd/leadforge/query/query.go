// Package querycmder provides the query command for retrieving relevant
// chunks from the vector index.
package querycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/cmd/leadforge/runtime"
	"github.com/leadforgeco/leadforge/pkg/cliui"
	"github.com/leadforgeco/leadforge/pkg/logger"
	"github.com/leadforgeco/leadforge/pkg/retrieval"
	"github.com/leadforgeco/leadforge/pkg/utils"
)

const queryLongDesc string = `Retrieve the chunks most relevant to a query.

Embeds the query and searches the vector index, keeping results at or
above the similarity threshold. When the vector path finds nothing the
configured web search aggregator is consulted as a fallback; --hybrid runs
both paths and merges their results.

Use --type to restrict results to one document kind (lead, paper, search).

Examples:
  leadforge query "battery startups in scandinavia"
  leadforge query "solid state electrolytes" --type paper --top 10
  leadforge query "competitor funding rounds" --hybrid
  leadforge query "lithium recycling" --no-fallback`

const queryShortDesc string = "Retrieve relevant chunks"

type queryCommander struct {
	query      string
	topK       int
	docType    string
	hybrid     bool
	noFallback bool

	debug  bool
	logger *zap.Logger
}

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to return (defaults to retrieval.top_k)")
	cmd.Flags().StringVarP(&cmder.docType, "type", "t", "", "Restrict to one document kind (lead, paper, search)")
	cmd.Flags().BoolVar(&cmder.hybrid, "hybrid", false, "Merge vector and web search results")
	cmd.Flags().BoolVar(&cmder.noFallback, "no-fallback", false, "Disable the web search fallback")

	return cmd
}

func (c *queryCommander) run(ctx context.Context, configDir string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg, err := runtime.LoadConfig(configDir)
	if err != nil {
		return err
	}

	services, err := runtime.Build(cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	topK := c.topK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	var filter map[string]string
	if c.docType != "" {
		filter = map[string]string{"type": c.docType}
	}

	var result retrieval.RetrievalResult
	if c.hybrid {
		result = services.Retriever.HybridRetrieve(ctx, c.query, topK, filter)
	} else {
		result = services.Retriever.Retrieve(ctx, c.query, topK, filter, !c.noFallback)
	}

	if result.Method == retrieval.MethodError {
		fmt.Printf("\n  %s %s\n\n", cliui.FailMark, "Retrieval failed. Run with --debug for details.")
		return nil
	}

	if result.TotalResults == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s %s\n\n",
		cliui.HeaderStyle.Render("Results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", result.Query)),
		cliui.DimStyle.Render(fmt.Sprintf("(method: %s, confidence: %.2f)", result.Method, result.Confidence)),
	)

	for _, chunk := range result.Chunks {
		printChunk(chunk.Rank, chunk.Score, chunk.Metadata, chunk.Content)
	}

	return nil
}

func printChunk(rank int, score float64, metadata map[string]string, content string) {
	title := metadata["title"]
	if title == "" {
		title = "untitled"
	}

	fmt.Printf("  %s  %s  %s\n",
		cliui.NameStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("score: %.4f", score)),
		cliui.KeyStyle.Render(title),
	)

	if source := metadata["source"]; source != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render(source))
	}
	if url := metadata["url"]; url != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render(url))
	}

	preview := utils.Truncate(strings.ReplaceAll(content, "\n", " "), 200)
	fmt.Printf("  %s\n\n", cliui.ValueStyle.Render(preview))
}
