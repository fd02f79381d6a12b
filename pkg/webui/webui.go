// Package webui serves the English Accent Detector page and its JSON and
// WebSocket API on top of a pipeline analyzer.
package webui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/accentid/pkg/pipeline"
)

//go:embed templates/*
var templateFS embed.FS

var tmpl *template.Template

func init() {
	var err error
	tmpl, err = template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
}

const (
	// DefaultTitle is the page title.
	DefaultTitle = "English Accent Detector"
	// DefaultAddr binds to localhost only.
	DefaultAddr = "127.0.0.1:7860"

	urlLabel   = "Enter public video URL (e.g., Loom, YouTube, MP4 link):"
	buttonText = "Analyze Accent"

	maxRequestBody  = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Runner runs one analysis. *pipeline.Analyzer implements it.
type Runner interface {
	Run(ctx context.Context, url string, progress pipeline.ProgressFunc) (*pipeline.Result, error)
}

// Config configures a Server.
type Config struct {
	Addr  string
	Title string
	// CORS adds permissive CORS headers to every response.
	CORS bool
}

// Server is the web UI.
type Server struct {
	cfg      Config
	runner   Runner
	models   pipeline.ModelSource
	upgrader websocket.Upgrader
}

// New creates a server. models is queried for the trained classes and the
// health check; it should be the same source the runner uses.
func New(runner Runner, models pipeline.ModelSource, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	s := &Server{
		cfg:    cfg,
		runner: runner,
		models: models,
	}
	// A nil CheckOrigin makes gorilla reject cross-origin handshakes, so
	// other pages cannot drive downloads on a local server.
	if cfg.CORS {
		s.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/analyze/ws", s.handleAnalyzeWS)
	mux.HandleFunc("GET /api/classes", s.handleClasses)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var h http.Handler = mux
	if s.cfg.CORS {
		h = corsMiddleware(h)
	}
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web UI starting", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	slog.Info("web UI shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
