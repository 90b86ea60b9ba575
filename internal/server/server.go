// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server serves the pmid2nct web UI and JSON API: a spreadsheet
// upload form, the result table with CSV download, stored runs, health
// and Prometheus metrics.
package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Runner performs one lookup over a list of PMIDs.
type Runner interface {
	Run(ctx context.Context, pmids []string) (types.Result, error)
}

// Store persists and loads completed runs.
type Store interface {
	Save(ctx context.Context, source string, result types.Result) (types.Run, error)
	Get(ctx context.Context, id string) (types.Run, error)
	ExportYAML(ctx context.Context, id string, w io.Writer) error
}

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	runner    Runner
	store     Store
	column    string
	maxUpload int64
	tmpl      *template.Template
	logger    zerolog.Logger
}

// NewHandler creates a Handler. column names the PMID header in uploaded
// files and maxUpload caps the request body of an upload.
func NewHandler(runner Runner, store Store, column string, maxUpload int64) *Handler {
	if column == "" {
		column = types.DefaultColumn
	}
	if maxUpload <= 0 {
		maxUpload = types.DefaultMaxUploadBytes
	}
	return &Handler{
		runner:    runner,
		store:     store,
		column:    column,
		maxUpload: maxUpload,
		tmpl:      template.Must(template.ParseFS(templateFS, "templates/*.html")),
		logger:    logging.NewLogger("server"),
	}
}

// Register mounts the UI and API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/lookup", h.handleUpload)
	r.Get("/runs/{id}", h.handleRun)
	r.Get("/runs/{id}/nct_results.csv", h.handleCSV)
	r.Get("/runs/{id}/results.yaml", h.handleYAML)
	r.Post("/api/lookup", h.handleAPILookup)
}

// NewRouter wires the handler, health check, and metrics endpoint behind
// the shared middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(requestMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	h.Register(r)
	return r
}

// New builds an HTTP server with the project's timeouts. Lookups can run
// for minutes on large uploads, so only the header read is bounded.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
