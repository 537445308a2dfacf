// Package metrics exposes Prometheus collectors for crawls, port probes,
// pipeline stages, saves and the HTTP API.
//
// Collectors are registered on their own registry rather than the global
// one, so several crawlers (and parallel tests) can coexist in one process.
// A nil *Collectors is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "darklight"

// Collectors groups every darklight metric.
type Collectors struct {
	registry *prometheus.Registry

	crawlsTotal   *prometheus.CounterVec
	crawlDuration prometheus.Histogram
	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	stagesTotal   *prometheus.CounterVec
	savesTotal    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		crawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Scans by outcome (captured or aborted).",
		}, []string{"outcome"}),
		crawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of a scan including navigation and port probing.",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 240},
		}),
		probesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "port_probes_total",
			Help:      "Port probes by port and state.",
		}, []string{"port", "state"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "port_probe_duration_seconds",
			Help:      "Duration of a single port probe.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10},
		}),
		stagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stages_total",
			Help:      "Pipeline stage runs by stage and status.",
		}, []string{"stage", "status"}),
		savesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save calls by result.",
		}, []string{"result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveCrawl records a finished scan.
func (c *Collectors) ObserveCrawl(captured bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "aborted"
	if captured {
		outcome = "captured"
	}
	c.crawlsTotal.WithLabelValues(outcome).Inc()
	c.crawlDuration.Observe(elapsed.Seconds())
}

// ObserveProbe records a port probe. It satisfies portscan.Observer.
func (c *Collectors) ObserveProbe(port int, open bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	state := "closed"
	if open {
		state = "open"
	}
	c.probesTotal.WithLabelValues(strconv.Itoa(port), state).Inc()
	c.probeDuration.Observe(elapsed.Seconds())
}

// ObserveStage records a pipeline stage outcome. It satisfies pipeline.Observer.
func (c *Collectors) ObserveStage(stage, status string) {
	if c == nil {
		return
	}
	c.stagesTotal.WithLabelValues(stage, status).Inc()
}

// ObserveSave records the result of a save.
func (c *Collectors) ObserveSave(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.savesTotal.WithLabelValues(result).Inc()
}
