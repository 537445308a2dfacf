package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/darklight/internal/artifact"
	"github.com/nao1215/darklight/internal/browser"
	"github.com/nao1215/darklight/internal/cache"
	"github.com/nao1215/darklight/internal/config"
	"github.com/nao1215/darklight/internal/crawler"
	"github.com/nao1215/darklight/internal/database"
	"github.com/nao1215/darklight/internal/docstore"
	dlog "github.com/nao1215/darklight/internal/log"
	"github.com/nao1215/darklight/internal/metrics"
	"github.com/nao1215/darklight/internal/pipeline"
	"github.com/nao1215/darklight/internal/portscan"
	"github.com/nao1215/darklight/internal/tor"
)

// loadConfig reads the config file named by --config (or the default
// locations), applies the global flags and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the global flags.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	jsonLog, _ := cmd.Flags().GetBool("json-log") //nolint:errcheck // flag is always registered
	logger := dlog.New(cmd.ErrOrStderr(), dlog.Options{
		Verbose: cfg.Verbose,
		JSON:    jsonLog,
	})
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// app holds the wired components of a crawl process.
type app struct {
	crawler *crawler.Crawler
	index   *docstore.Index
	metrics *metrics.Collectors
	logger  *slog.Logger

	closers []func() error
}

// newApp wires every component from cfg. Optional backends (PostgreSQL,
// Redis) are left out when their address is not configured.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{metrics: metrics.New(), logger: logger}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close() //nolint:errcheck // the setup error is returned
		}
	}()

	var dial portscan.DialFunc
	proxyURL := ""
	if cfg.TorEnabled {
		session, err := tor.Open(ctx, tor.SessionConfig{
			ProxyAddress:   cfg.TorProxyAddress,
			StartupTimeout: cfg.TorStartupTimeout,
			Verify:         true,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to tor: %w", err)
		}
		a.closers = append(a.closers, session.Close)
		dial = session.DialContext
		proxyURL = session.ProxyURL()
	} else {
		logger.Warn("tor is disabled, connecting directly")
	}

	engine := browser.NewChrome(browser.Options{
		ProxyURL:          proxyURL,
		ExecPath:          cfg.BrowserPath,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.BrowserTimeout,
		ScreenshotQuality: cfg.ScreenshotQuality,
	}, browser.WithLogger(logger))
	a.closers = append(a.closers, engine.Close)

	scanner := portscan.NewScanner(
		portscan.NewTCPProber(dial, cfg.PortTimeout),
		portscan.WithWorkers(cfg.PortWorkers),
		portscan.WithLogger(logger),
		portscan.WithObserver(a.metrics),
	)

	index, err := docstore.Open(cfg.IndexDir, docstore.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	a.index = index
	a.closers = append(a.closers, index.Close)
	logger.Debug("index opened", "path", index.Path())

	store, err := artifact.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	deps := crawler.Deps{
		Engine:    engine,
		Scanner:   scanner,
		Artifacts: store,
		Index:     index,
	}
	stageDeps := pipeline.Deps{Relations: index}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL, database.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			db.Close()
			return nil
		})
		deps.Domains = db
		stageDeps.Domains = db
	} else {
		logger.Warn("database.url is not set, crawls are saved without domain records")
	}

	if cfg.RedisAddr != "" {
		mirrors := cache.NewMirrorIndex(cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		a.closers = append(a.closers, mirrors.Close)
		if err := mirrors.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.RedisAddr, err)
		}
		stageDeps.Mirrors = mirrors
	}

	deps.Runner = pipeline.NewRunner(pipeline.Builtin(stageDeps), cfg,
		pipeline.WithLogger(logger),
		pipeline.WithObserver(a.metrics),
	)
	logger.Debug("pipeline ready", "stages", deps.Runner.StageNames())

	a.crawler = crawler.New(deps,
		crawler.WithLogger(logger),
		crawler.WithMetrics(a.metrics),
	)
	ready = true
	return a, nil
}

// Close releases every component in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
