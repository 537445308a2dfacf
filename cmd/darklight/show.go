package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/darklight/internal/docstore"
	"github.com/nao1215/darklight/internal/report"
)

// Output formats of the show command.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the stored documents of a crawl",
		Long: `Show reads the webpage and port documents stored for a crawl id,
together with the relationships the pipeline extracted, and prints them.

Examples:
  darklight show 0b7c0e1a-3f5c-4b1e-9a59-2c1b5f4d7e21
  darklight show 0b7c0e1a-3f5c-4b1e-9a59-2c1b5f4d7e21 --format markdown > report.md`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("format", "f", formatText,
		"Output format: text, markdown or json")

	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	index, err := docstore.Open(cfg.IndexDir, docstore.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open index in %s: %w", cfg.IndexDir, err)
	}
	defer index.Close()

	crawl, err := loadCrawl(cmd.Context(), index, args[0])
	if err != nil {
		return err
	}

	w, err := newReportWriter(cmd.OutOrStdout(), format, cfg.Verbose)
	if err != nil {
		return err
	}
	_, err = w.Write(crawl)
	return err
}

// loadCrawl collects every document stored for id.
// It returns docstore.ErrNotFound when no webpage was stored.
func loadCrawl(ctx context.Context, index *docstore.Index, id string) (*report.Crawl, error) {
	page, err := index.Webpage(ctx, id)
	if err != nil {
		return nil, err
	}

	ports, err := index.Port(ctx, id)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	rels, err := index.Relationships(ctx, id)
	if err != nil {
		return nil, err
	}

	return &report.Crawl{Webpage: page, Ports: ports, Relationships: rels}, nil
}

func newReportWriter(w io.Writer, format string, verbose bool) (report.Writer, error) {
	switch format {
	case formatText:
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	case formatMarkdown:
		return report.NewMarkdownWriter(w), nil
	case formatJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion())), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, markdown or json)", format)
	}
}
