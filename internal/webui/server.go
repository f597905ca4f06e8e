// Package webui serves the admin over HTTP: one screen per table with the
// live grid and the create, update and delete forms, plus the report
// battery.
//
// Routes:
//
//	GET  /                              → redirect to the first table
//	GET  /tables/{table}?row=<id>       → grid and forms; row preselects keys
//	POST /tables/{table}/{op}           → op is create, update or delete
//	GET  /reports                       → report list
//	POST /reports/{id}                  → run one report
//	GET  /healthz                       → liveness
//	GET  /metrics                       → scrape endpoint, when configured
package webui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"dbadmin/internal/crud"
)

// Config controls server startup.
type Config struct {
	Addr string

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	// ShutdownTimeout bounds graceful shutdown. Zero means 10s.
	ShutdownTimeout time.Duration
}

// Server wires the admin service to HTTP.
type Server struct {
	cfg  Config
	svc  *crud.Service
	log  *zap.Logger
	mux  *http.ServeMux
	tmpl *template.Template
}

//go:embed templates/*.html
var templateFS embed.FS

// NewServer constructs a Server with routes and the embedded templates.
func NewServer(cfg Config, svc *crud.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:  cfg,
		svc:  svc,
		log:  log,
		mux:  http.NewServeMux(),
		tmpl: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
	s.routes()
	return s
}

// Handler returns the root handler with request middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /tables/{table}", s.handleTable)
	s.mux.HandleFunc("POST /tables/{table}/{op}", s.handleWrite)
	s.mux.HandleFunc("GET /reports", s.handleReports)
	s.mux.HandleFunc("POST /reports/{id}", s.handleRunReport)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}
