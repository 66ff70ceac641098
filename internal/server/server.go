package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/olehluchkiv/diverify/internal/diagram"
	"github.com/olehluchkiv/diverify/internal/pipeline"
	"github.com/olehluchkiv/diverify/internal/report"
)

// RunFunc produces a fresh analysis. The cleanup it returns is called once the
// run has been replaced.
type RunFunc func(ctx context.Context) (*pipeline.Run, func(), error)

// Options controls Serve.
type Options struct {
	Port        int
	OpenBrowser bool
	Watch       bool
}

// view is everything the handlers render. It is replaced as a whole.
type view struct {
	Data      diagram.InteractiveData
	Report    report.Report
	Err       string
	UpdatedAt time.Time
}

// Server renders the latest analysis and, when watching, re-runs it as the
// input changes.
type Server struct {
	run    RunFunc
	logger *slog.Logger
	tmpl   *template.Template

	mu      sync.RWMutex
	current view
	last    *pipeline.Run
	cleanup func()
}

// New returns a server with no analysis loaded yet; call Refresh before
// serving.
func New(run RunFunc, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML template: %w", err)
	}
	return &Server{
		run:     run,
		logger:  logger.With("component", "server"),
		tmpl:    tmpl,
		cleanup: func() {},
	}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handlePage)
	r.Get("/mermaid.md", s.handleMermaid)
	r.Route("/api", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/graph", s.handleGraph)
	})
	return r
}

func (s *Server) snapshot() view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v := s.snapshot()
	data := pageData{
		Input:     v.Report.Input,
		RunID:     v.Report.RunID,
		Slides:    v.Data.Slides,
		Error:     v.Err,
		UpdatedAt: v.UpdatedAt.Format(time.TimeOnly),
		Invalid:   v.Report.Invalid,
	}
	for _, svc := range v.Data.Services {
		if !svc.Valid {
			data.Findings = append(data.Findings, svc)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleMermaid(w http.ResponseWriter, r *http.Request) {
	v := s.snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(v.Data.Slides) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte(v.Data.Slides[0].Mermaid))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	v := s.snapshot()
	if v.Err != "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": v.Err}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, v.Report, s.logger)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	v := s.snapshot()
	if v.Err != "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": v.Err}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, v.Data, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context, opts Options) error {
	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", opts.Port)
	s.logger.Info("starting HTTP server", "addr", url)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	if opts.Watch {
		go func() {
			if err := s.Watch(ctx); err != nil {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	if opts.OpenBrowser {
		openInBrowser(url, s.logger)
	}

	// Block until the context is cancelled or the server fails.
	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer s.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	}
}

// Close releases the resources held by the current run.
func (s *Server) Close() {
	s.mu.Lock()
	cleanup := s.cleanup
	s.cleanup = func() {}
	s.mu.Unlock()
	cleanup()
}

// openInBrowser opens the given URL in the default system browser.
func openInBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		logger.Warn("unsupported platform for opening browser", "os", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", "error", err)
	}
}
