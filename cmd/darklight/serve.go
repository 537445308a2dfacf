package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/darklight/internal/crawler"
	"github.com/nao1215/darklight/internal/docstore"
	"github.com/nao1215/darklight/internal/metrics"
	"github.com/nao1215/darklight/internal/model"
	"github.com/nao1215/darklight/internal/pipeline"
	"github.com/nao1215/darklight/internal/report"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl HTTP API",
		Long: `Serve exposes crawling over HTTP.

Endpoints:
  POST /crawls       {"id": "...", "url": "http://....onion"} crawls and stores a page
  GET  /crawls/{id}  returns the stored documents of a crawl as JSON
  GET  /healthz      reports whether the index is reachable
  GET  /metrics      Prometheus metrics

Examples:
  darklight serve
  darklight serve --listen 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("listen", "", "Listen address (default: server.listen_addr)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, err := cmd.Flags().GetString("listen"); err == nil && listen != "" {
		cfg.ListenAddr = listen
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

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newServer(a.crawler, a.index, a.metrics, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// crawlService scans and saves crawls. crawler.Crawler implements it.
type crawlService interface {
	Scan(ctx context.Context, rawURL string) *model.CrawlResult
	Save(ctx context.Context, id string, result *model.CrawlResult) (*pipeline.Report, error)
}

// server holds the HTTP handlers.
type server struct {
	crawls  crawlService
	index   *docstore.Index
	metrics *metrics.Collectors
	logger  *slog.Logger
}

func newServer(crawls crawlService, index *docstore.Index, m *metrics.Collectors, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &server{crawls: crawls, index: index, metrics: m, logger: logger}
}

// Routes returns the router of the API.
func (s *server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Route("/crawls", func(r chi.Router) {
		r.Post("/", s.handleCreateCrawl)
		r.Get("/{id}", s.handleGetCrawl)
	})
	return r
}

// crawlRequest is the body of POST /crawls.
type crawlRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// crawlResponse is the body of a successful POST /crawls.
type crawlResponse struct {
	ID        string                  `json:"id"`
	URL       string                  `json:"url"`
	OpenPorts []int                   `json:"open_ports"`
	Stages    []pipeline.StageOutcome `json:"stages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCreateCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	result := s.crawls.Scan(r.Context(), req.URL)
	rep, err := s.crawls.Save(r.Context(), req.ID, result)
	switch {
	case errors.Is(err, crawler.ErrEmptyResult):
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%s: %w", req.URL, err))
		return
	case err != nil:
		s.logger.Error("failed to save crawl", "id", req.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	stages := make([]pipeline.StageOutcome, 0)
	if rep != nil {
		stages = rep.Outcomes
	}
	s.writeJSON(w, http.StatusCreated, crawlResponse{
		ID:        req.ID,
		URL:       req.URL,
		OpenPorts: result.OpenPorts(),
		Stages:    stages,
	})
}

func (s *server) handleGetCrawl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	crawl, err := loadCrawl(r.Context(), s.index, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Error("failed to load crawl", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := report.NewJSONWriter(w, report.WithVersion(getVersion())).Write(crawl); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
