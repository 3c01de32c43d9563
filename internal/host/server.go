// Package host is the HTTP bridge the file manager talks to. The host
// renders every dialog; this side only lists applicable actions,
// accepts job submissions and streams progress events.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/events"
	"github.com/sealbox/sealbox/internal/journal"
	"github.com/sealbox/sealbox/internal/workflow"
)

// JobRunner executes a job to completion. *workflow.Controller
// satisfies it.
type JobRunner interface {
	Run(ctx context.Context, job *workflow.Job) (*workflow.Result, error)
}

// PassphraseSource mints a fresh passphrase for encrypt jobs.
type PassphraseSource func() (passphrase string, err error)

// Server is the local bridge endpoint. It binds loopback only by
// default; the bearer token is still required for every job-touching
// route.
type Server struct {
	cfg       config.BridgeConfig
	runner    JobRunner
	hub       *events.Hub
	journal   *journal.Journal
	suffix    string
	generate  PassphraseSource
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// HSMAvailable reports whether a hardware token can mint
	// passphrases. Optional; nil means not available. Set before Start.
	HSMAvailable func() bool
}

func New(cfg config.BridgeConfig, runner JobRunner, hub *events.Hub, jnl *journal.Journal, cipherSuffix string, generate PassphraseSource, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		runner:    runner,
		hub:       hub,
		journal:   jnl,
		suffix:    cipherSuffix,
		generate:  generate,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("bridge starting", "listen", s.cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("bridge shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("bridge error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/actions", s.handleActions)
		r.Post("/jobs", s.handleSubmitJob)
		r.Get("/jobs/recent", s.handleRecentJobs)
		r.Get("/jobs/{jobID}/targets", s.handleJobTargets)
		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
