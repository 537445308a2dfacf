package portscan

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/darklight/internal/model"
)

// Observer receives the outcome of each probe.
// metrics.Collectors implements it.
type Observer interface {
	ObserveProbe(port int, open bool, elapsed time.Duration)
}

// Scanner probes the model.Catalog ports of a host.
type Scanner struct {
	prober   Prober
	workers  int
	logger   *slog.Logger
	observer Observer
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers caps the number of concurrent probes. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger for per-port debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an Observer for probe outcomes.
func WithObserver(o Observer) Option {
	return func(s *Scanner) {
		s.observer = o
	}
}

// NewScanner creates a Scanner. By default every catalog port is probed at once.
func NewScanner(prober Prober, opts ...Option) *Scanner {
	s := &Scanner{
		prober:  prober,
		workers: len(model.Catalog),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan probes every catalog port of host and returns their status in
// catalog order. An empty or malformed host yields all ports closed
// without calling the prober. Ports not yet probed when ctx is done are
// reported closed.
func (s *Scanner) Scan(ctx context.Context, host string) []model.PortStatus {
	ports := model.CatalogPorts()
	results := model.ClosedPorts(ports)

	host, ok := probeHost(host)
	if !ok {
		s.logger.Debug("skipping port scan for invalid host", "host", host)
		return results
	}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for i, port := range ports {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			start := time.Now()
			open, err := s.prober.Probe(ctx, host, port)
			if err != nil {
				open = false
			}
			// Each goroutine owns exactly one index.
			results[i].Open = open

			if s.observer != nil {
				s.observer.ObserveProbe(port, open, time.Since(start))
			}
			s.logger.Debug("port probed", "host", host, "port", port, "service", model.ServiceName(port), "open", open)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probe goroutines never return errors

	return results
}

// Close releases the prober if it holds resources.
func (s *Scanner) Close() error {
	if c, ok := s.prober.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// probeHost strips an optional port from a network location and rejects
// values that cannot name a host.
func probeHost(netloc string) (string, bool) {
	netloc = strings.TrimSpace(netloc)
	if netloc == "" || strings.ContainsAny(netloc, "/?#@ \t") {
		return netloc, false
	}
	host := netloc
	if h, _, err := net.SplitHostPort(netloc); err == nil {
		host = h
	}
	return host, host != ""
}
