package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/darklight/internal/crawler"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [id url]",
		Short: "Capture, probe and store onion services",
		Long: `Crawl captures a page with headless Chrome, probes the service port
catalog, runs the post-processing pipeline and stores the documents under
the given crawl id.

The crawl id usually refers to a domain record in the database
(database.url). Crawls without a matching record are still stored.

Examples:
  # Crawl a single service
  darklight crawl 0b7c0e1a-3f5c-4b1e-9a59-2c1b5f4d7e21 http://example.onion

  # Crawl every "id url" line of a file, 8 at a time
  darklight crawl --list targets.txt --batch 8`,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("list", "l", "",
		`File of "id url" lines to crawl ("-" reads stdin)`)
	cmd.Flags().IntP("batch", "b", 0,
		"Number of concurrent crawls (default: server.batch_size)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	jobs, err := crawlJobs(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if batch, err := cmd.Flags().GetInt("batch"); err == nil && batch > 0 {
		cfg.BatchSize = batch
	}

	logger := newLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	logger.Info("starting crawl", "jobs", len(jobs), "batch_size", cfg.BatchSize)

	out := cmd.OutOrStdout()
	batch := crawler.NewBatch(a.crawler,
		crawler.WithConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)
	outcomes, runErr := batch.Run(ctx, jobs)

	failed := 0
	for _, o := range outcomes {
		printOutcome(out, o)
		if o.Err != nil && !errors.Is(o.Err, crawler.ErrEmptyResult) {
			failed++
		}
	}
	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(outcomes))
	}
	return nil
}

// crawlJobs reads the jobs from the positional arguments or --list.
func crawlJobs(cmd *cobra.Command, args []string) ([]crawler.Job, error) {
	list, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	switch {
	case list != "" && len(args) > 0:
		return nil, errors.New("specify either <id> <url> or --list, not both")
	case list != "":
		return readJobs(cmd.InOrStdin(), list)
	case len(args) == 2:
		return []crawler.Job{{ID: args[0], URL: args[1]}}, nil
	default:
		return nil, errors.New("expected <id> <url> or --list <file>")
	}
}

func readJobs(stdin io.Reader, path string) ([]crawler.Job, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // user-provided list path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open job list: %w", err)
		}
		defer f.Close()
		r = f
	}

	jobs, err := crawler.ParseJobs(r)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs in %s", path)
	}
	return jobs, nil
}

// printOutcome writes a one-line summary of o.
func printOutcome(w io.Writer, o crawler.Outcome) {
	switch {
	case errors.Is(o.Err, crawler.ErrEmptyResult):
		fmt.Fprintf(w, "SKIP  %s %s: page not captured\n", o.Job.ID, o.Job.URL)
	case o.Err != nil:
		fmt.Fprintf(w, "FAIL  %s %s: %v\n", o.Job.ID, o.Job.URL, o.Err)
	default:
		line := fmt.Sprintf("SAVED %s %s: open ports %v", o.Job.ID, o.Job.URL, o.Result.OpenPorts())
		if failed := o.Report.Failed(); len(failed) > 0 {
			names := make([]string, len(failed))
			for i, f := range failed {
				names[i] = f.Name
			}
			line += ", failed stages: " + strings.Join(names, ",")
		}
		fmt.Fprintln(w, line)
	}
}
