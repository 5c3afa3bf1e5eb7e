// Package askcmder provides the ask command for generating a grounded
// answer to a question.
package askcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/cmd/leadforge/runtime"
	"github.com/leadforgeco/leadforge/pkg/cliui"
	"github.com/leadforgeco/leadforge/pkg/generation"
	"github.com/leadforgeco/leadforge/pkg/logger"
)

const askLongDesc string = `Generate a grounded answer to a question.

Retrieves the most relevant chunks from the vector index (with web search
fallback), builds a context-grounded prompt and asks the configured
language model for an answer. The answer is rendered as markdown.

Examples:
  leadforge ask "which leads mention solid state batteries?"
  leadforge ask "summarize recent electrolyte research" --hybrid
  leadforge ask "who funds lithium recycling?" --top 10 --plain`

const askShortDesc string = "Generate a grounded answer"

type askCommander struct {
	question string
	topK     int
	hybrid   bool
	plain    bool

	debug  bool
	logger *zap.Logger
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of chunks to retrieve (defaults to retrieval.top_k)")
	cmd.Flags().BoolVar(&cmder.hybrid, "hybrid", false, "Merge vector and web search results")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the raw answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, configDir string) error {
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

	var result generation.GenerationResult
	if err := cliui.Step(os.Stdout, "Generating answer", func() error {
		result = services.Generator.Generate(ctx, c.question, topK, c.hybrid)
		if result.Error != "" {
			return fmt.Errorf("%s", result.Error)
		}
		return nil
	}); err != nil {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render(result.Answer))
		return nil
	}

	answer := result.Answer
	if !c.plain {
		if rendered, rerr := cliui.RenderMarkdown(answer); rerr == nil {
			answer = rendered
		}
	}

	fmt.Printf("\n%s\n", answer)
	fmt.Printf("%s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"model: %s · method: %s · context: %d chunks · confidence: %.2f · %s",
		result.Model,
		result.RetrievalMethod,
		result.ContextUsed,
		result.Confidence,
		cliui.FormatDuration(result.Duration),
	)))

	return nil
}
