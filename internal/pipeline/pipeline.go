package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/darklight/internal/config"
	"github.com/nao1215/darklight/internal/model"
)

// ErrStagePanic wraps a panic recovered from a stage.
var ErrStagePanic = errors.New("stage panicked")

// Stage is one post-processing step of a crawl.
type Stage interface {
	// Name identifies the stage in logs, reports and configuration.
	Name() string
	// Active reports whether the stage has anything to do for this crawl.
	Active() bool
	// Handle performs the stage's side effects.
	Handle(ctx context.Context) error
}

// Input is what a factory builds a stage from.
type Input struct {
	// ID is the crawl identifier.
	ID string
	// Domain is the relational record of ID. It may be nil.
	Domain *model.DomainRecord
	// Result is the crawl being saved.
	Result *model.CrawlResult
	// Config is the process configuration.
	Config *config.Config
	// Now is the time the run started.
	Now time.Time
}

// Page returns the captured page, or nil.
func (in Input) Page() *model.PageCapture {
	if in.Result == nil {
		return nil
	}
	return in.Result.Page
}

// Factory builds a fresh stage for one crawl.
type Factory func(in Input) Stage

// Registration pairs a stage name with its factory, so disabled stages
// are never constructed.
type Registration struct {
	Name string
	New  Factory
}

// Observer receives stage outcomes. metrics.Collectors implements it.
type Observer interface {
	ObserveStage(stage, status string)
}

// Runner executes registered stages in order.
type Runner struct {
	stages   []Registration
	cfg      *config.Config
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an Observer for stage outcomes.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a runner for stages. A nil cfg enables every stage.
func NewRunner(stages []Registration, cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := &Runner{
		stages: stages,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StageNames returns the registered stage names in execution order.
func (r *Runner) StageNames() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes every stage for one crawl and reports what happened.
// It never returns an error itself; failures are in the Report.
func (r *Runner) Run(ctx context.Context, id string, domain *model.DomainRecord, result *model.CrawlResult) *Report {
	in := Input{ID: id, Domain: domain, Result: result, Config: r.cfg, Now: r.now()}
	report := &Report{Outcomes: make([]StageOutcome, 0, len(r.stages))}

	for _, reg := range r.stages {
		outcome := r.runStage(ctx, reg, in)
		report.Outcomes = append(report.Outcomes, outcome)
		if r.observer != nil {
			r.observer.ObserveStage(outcome.Name, string(outcome.Status))
		}
	}
	return report
}

func (r *Runner) runStage(ctx context.Context, reg Registration, in Input) StageOutcome {
	outcome := StageOutcome{Name: reg.Name, Status: StatusSkipped}

	if !r.cfg.StageEnabled(reg.Name) {
		r.logger.Debug("stage disabled", "stage", reg.Name, "id", in.ID)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		r.logger.Error("error while handling stage", "stage", reg.Name, "id", in.ID, "error", err)
		return outcome
	}

	stage := reg.New(in)
	if stage == nil || !stage.Active() {
		r.logger.Debug("stage inactive", "stage", reg.Name, "id", in.ID)
		return outcome
	}

	start := time.Now()
	err := handle(ctx, stage)
	outcome.Elapsed = time.Since(start)

	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		r.logger.Error("error while handling stage", "stage", reg.Name, "id", in.ID, "error", err)
		return outcome
	}

	outcome.Status = StatusOK
	r.logger.Debug("stage completed", "stage", reg.Name, "id", in.ID, "elapsed", outcome.Elapsed)
	return outcome
}

// handle runs stage.Handle and turns a panic into an error.
func handle(ctx context.Context, stage Stage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, p)
		}
	}()
	return stage.Handle(ctx)
}
