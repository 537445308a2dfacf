package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/darklight/internal/artifact"
	"github.com/nao1215/darklight/internal/browser"
	"github.com/nao1215/darklight/internal/docstore"
	"github.com/nao1215/darklight/internal/model"
	"github.com/nao1215/darklight/internal/pipeline"
)

// ErrEmptyResult is returned by Save for a result without a page.
var ErrEmptyResult = errors.New("crawl result is empty")

// PortScanner probes the port catalog. portscan.Scanner implements it.
type PortScanner interface {
	Scan(ctx context.Context, host string) []model.PortStatus
}

// DomainFinder looks up domain records. database.Store implements it.
type DomainFinder interface {
	FindDomain(ctx context.Context, id string) (*model.DomainRecord, error)
}

// Metrics receives crawl and save outcomes. metrics.Collectors implements it.
type Metrics interface {
	ObserveCrawl(captured bool, elapsed time.Duration)
	ObserveSave(err error)
}

// Deps are the collaborators of a Crawler. Domains may be nil, in which
// case every save runs with a nil domain.
type Deps struct {
	Engine    browser.Engine
	Scanner   PortScanner
	Domains   DomainFinder
	Runner    *pipeline.Runner
	Artifacts artifact.Store
	Index     *docstore.Index
}

// Crawler scans and saves crawls.
type Crawler struct {
	deps    Deps
	writer  *docstore.Writer
	logger  *slog.Logger
	now     func() time.Time
	metrics Metrics
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for document timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics registers a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// New creates a Crawler.
func New(deps Deps, opts ...Option) *Crawler {
	c := &Crawler{
		deps:   deps,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deps.Runner == nil {
		c.deps.Runner = pipeline.NewRunner(nil, nil, pipeline.WithLogger(c.logger))
	}
	c.writer = docstore.NewWriter(c.now)
	return c
}

// Scan captures rawURL and probes its host. It never fails: a capture
// error is logged and yields an empty result.
func (c *Crawler) Scan(ctx context.Context, rawURL string) *model.CrawlResult {
	start := c.now()

	capture, err := c.deps.Engine.Fetch(ctx, rawURL)
	if err != nil || capture == nil {
		c.logger.Warn("failed to fetch page", "url", rawURL, "error", err)
		c.observeCrawl(false, start)
		return &model.CrawlResult{}
	}

	domain := model.DomainFromURL(rawURL)
	ports := c.deps.Scanner.Scan(ctx, domain)

	c.logger.Info("page scanned",
		"url", rawURL,
		"title", capture.Title,
		"open_ports", len((&model.CrawlResult{Ports: ports}).OpenPorts()),
	)
	c.observeCrawl(true, start)
	return &model.CrawlResult{Page: capture, Ports: ports}
}

// Save runs the pipeline for result and persists it under id.
// The returned report is nil only when result is empty.
func (c *Crawler) Save(ctx context.Context, id string, result *model.CrawlResult) (report *pipeline.Report, err error) {
	if result.IsEmpty() {
		return nil, ErrEmptyResult
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveSave(err)
		}
	}()

	domain := c.findDomain(ctx, id)
	if domain == nil {
		c.logger.Warn("no domain record for crawl; saving without it", "id", id)
	}

	report = c.deps.Runner.Run(ctx, id, domain, result)
	for _, f := range report.Failed() {
		c.logger.Warn("pipeline stage failed", "id", id, "stage", f.Name, "error", f.Err)
	}

	sess, err := c.deps.Index.Session(ctx)
	if err != nil {
		return report, fmt.Errorf("open document session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.logger.Warn("failed to close document session", "id", id, "error", cerr)
		}
	}()

	ref, err := c.storeScreenshot(ctx, id, result.Page)
	if err != nil {
		return report, err
	}

	if err := c.writer.Write(ctx, sess, id, result, ref); err != nil {
		return report, fmt.Errorf("write documents: %w", err)
	}

	c.logger.Info("crawl saved", "id", id, "screenshot", ref)
	return report, nil
}

// findDomain returns nil when the record is missing or the lookup fails.
func (c *Crawler) findDomain(ctx context.Context, id string) *model.DomainRecord {
	if c.deps.Domains == nil {
		return nil
	}
	domain, err := c.deps.Domains.FindDomain(ctx, id)
	if err != nil {
		c.logger.Error("failed to look up domain", "id", id, "error", err)
		return nil
	}
	return domain
}

// storeScreenshot returns "" without storing anything for pages that have
// no screenshot.
func (c *Crawler) storeScreenshot(ctx context.Context, id string, page *model.PageCapture) (string, error) {
	if len(page.Screenshot) == 0 {
		c.logger.Warn("page has no screenshot", "id", id, "url", page.URL)
		return "", nil
	}
	ref, err := c.deps.Artifacts.Store(ctx, page.Screenshot, id)
	if err != nil {
		return "", fmt.Errorf("store screenshot (%s): %w", c.deps.Artifacts.Backend(), err)
	}
	return ref, nil
}

func (c *Crawler) observeCrawl(captured bool, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveCrawl(captured, c.now().Sub(start))
	}
}
