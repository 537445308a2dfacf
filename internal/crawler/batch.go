package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/darklight/internal/model"
	"github.com/nao1215/darklight/internal/pipeline"
)

// DefaultConcurrency is the number of jobs a Batch runs at once.
const DefaultConcurrency = 4

// ErrInvalidJob is returned by ParseJobs for malformed lines.
var ErrInvalidJob = errors.New("invalid job")

// Job is one crawl request.
type Job struct {
	ID  string
	URL string
}

// Outcome is what happened to one Job.
type Outcome struct {
	Job    Job
	Result *model.CrawlResult
	Report *pipeline.Report
	// Err is ErrEmptyResult when the page could not be captured, or the
	// save error.
	Err error
}

// Batch runs many jobs through a Crawler with bounded concurrency.
type Batch struct {
	crawler     *Crawler
	concurrency int
	logger      *slog.Logger
	onDone      func(Outcome, int)
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency sets the maximum number of concurrent jobs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithOnDone calls fn with each outcome and its job index as soon as the
// job finishes. fn is called from worker goroutines.
func WithOnDone(fn func(Outcome, int)) BatchOption {
	return func(b *Batch) {
		b.onDone = fn
	}
}

// NewBatch creates a Batch on c.
func NewBatch(c *Crawler, opts ...BatchOption) *Batch {
	b := &Batch{
		crawler:     c,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes jobs and returns one outcome per job in input order.
// A failing job never stops the others. The error is the context error
// when the batch was cancelled; jobs that never started carry it too.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	b.logger.Info("starting batch", "jobs", len(jobs), "concurrency", b.concurrency)
	start := time.Now()

	outcomes := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		outcomes[i] = Outcome{Job: job}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].Err = err
				return err
			}

			outcome := b.process(gctx, job)
			outcomes[i] = outcome
			if b.onDone != nil {
				b.onDone(outcome, i)
			}
			return nil
		})
	}

	err := g.Wait()
	b.logger.Info("batch complete", "jobs", len(jobs), "elapsed", time.Since(start))
	return outcomes, err
}

func (b *Batch) process(ctx context.Context, job Job) Outcome {
	outcome := Outcome{Job: job}

	outcome.Result = b.crawler.Scan(ctx, job.URL)
	if outcome.Result.IsEmpty() {
		outcome.Err = ErrEmptyResult
		b.logger.Warn("crawl aborted", "id", job.ID, "url", job.URL)
		return outcome
	}

	outcome.Report, outcome.Err = b.crawler.Save(ctx, job.ID, outcome.Result)
	if outcome.Err != nil {
		b.logger.Error("failed to save crawl", "id", job.ID, "error", outcome.Err)
	}
	return outcome
}

// ParseJobs reads "id url" lines. Blank lines and lines starting with '#'
// are skipped.
func ParseJobs(r io.Reader) ([]Job, error) {
	jobs := make([]Job, 0)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w on line %d: want \"id url\", got %q", ErrInvalidJob, line, text)
		}
		jobs = append(jobs, Job{ID: fields[0], URL: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return jobs, nil
}
