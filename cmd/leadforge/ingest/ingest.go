// Package ingestcmder provides the ingest command for loading source
// documents into the vector index.
package ingestcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/cmd/leadforge/runtime"
	"github.com/leadforgeco/leadforge/pkg/cliui"
	"github.com/leadforgeco/leadforge/pkg/ingest"
	"github.com/leadforgeco/leadforge/pkg/logger"
)

const ingestLongDesc string = `Ingest documents into the vector index.

Each file holds one JSON document or an array of documents. A document
carries an id, a kind (lead, paper or search) and the text fields for that
kind; the relevant fields are combined, normalized, chunked and embedded,
and the resulting chunks are stored in the configured vector store.

Documents without a kind are treated as leads. Re-ingesting a document
overwrites its previous chunks, since chunk identifiers are derived from
the document id.

Examples:
  leadforge ingest leads.json
  leadforge ingest papers/*.json
  leadforge ingest findings.json --kind search`

const ingestShortDesc string = "Ingest documents into the vector index"

type ingestCommander struct {
	files []string
	kind  string

	debug  bool
	logger *zap.Logger
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.files = args

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.kind, "kind", "", "Default kind for documents that carry none (lead, paper, search)")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, configDir string) error {
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

	var docs []*ingest.SourceDocument
	for _, file := range c.files {
		loaded, err := loadDocuments(file)
		if err != nil {
			return err
		}
		docs = append(docs, loaded...)
	}

	if c.kind != "" {
		kind := ingest.Kind(c.kind)
		for _, doc := range docs {
			if doc.Kind == "" {
				doc.Kind = kind
			}
		}
	}

	var succeeded, failed, chunks int
	for _, doc := range docs {
		var result ingest.IngestionResult
		stepErr := cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", doc.ID), func() error {
			result = services.Pipeline.Ingest(ctx, doc)
			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}
			return nil
		})
		if stepErr != nil {
			failed++
			continue
		}
		succeeded++
		chunks += result.TotalChunks
	}

	fmt.Printf("\n  %s Ingested %s documents %s\n\n",
		cliui.Mark(nil),
		cliui.NameStyle.Render(fmt.Sprintf("%d/%d", succeeded, len(docs))),
		cliui.DimStyle.Render(fmt.Sprintf("(%d chunks)", chunks)),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// loadDocuments reads one file holding either a single document object or
// an array of documents.
func loadDocuments(path string) ([]*ingest.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var docs []*ingest.SourceDocument
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	var doc ingest.SourceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return []*ingest.SourceDocument{&doc}, nil
}
