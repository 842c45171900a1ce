// Package envserver exposes agent environments over HTTP/JSON so that
// training loops written in any language can drive the engine. Each
// environment is owned by one server-side entry and guarded by its own
// mutex; requests for different environments proceed in parallel.
package envserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vovakirdan/blockfall/internal/agent"
	"github.com/vovakirdan/blockfall/internal/config"
	"github.com/vovakirdan/blockfall/internal/registry"
	"github.com/vovakirdan/blockfall/internal/session"
	"github.com/vovakirdan/blockfall/internal/storage"
)

// ErrUnknownEnv is returned for IDs that were never created or already
// deleted.
var ErrUnknownEnv = errors.New("envserver: unknown env")

// RulesFunc resolves a variant name to rules.
type RulesFunc func(variant string) (config.Rules, error)

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// Store enables episode recording when set.
	Store *storage.Store
	// Rules resolves variants; defaults to the variant registry.
	Rules RulesFunc
	// DefaultVariant is used when a create request names none.
	DefaultVariant string
	// IdleTimeout drops environments not touched for this long (0 = never).
	IdleTimeout time.Duration
	// RequestTimeout bounds every request.
	RequestTimeout time.Duration
}

// Server serves the environment API.
type Server struct {
	opts    Options
	logger  *log.Logger
	envs    *session.Registry[*envEntry]
	started time.Time
	now     func() time.Time
}

type envEntry struct {
	mu      sync.Mutex
	env     *agent.Env
	variant string
	rec     *storage.Recorder
	closed  bool
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Rules == nil {
		opts.Rules = registry.Rules
	}
	if opts.DefaultVariant == "" {
		opts.DefaultVariant = registry.DefaultVariant
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		opts:    opts,
		logger:  opts.Logger,
		envs:    session.NewRegistry[*envEntry](),
		started: time.Now(),
		now:     time.Now,
	}
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/spaces", s.handleSpaces)
		r.Get("/variants", s.handleVariants)

		r.Route("/envs", func(r chi.Router) {
			r.Get("/", s.handleListEnvs)
			r.Post("/", s.handleCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleDelete)
				r.Post("/reset", s.handleReset)
				r.Post("/step", s.handleStep)
			})
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, sweeping idle
// environments in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sweepLoop(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("env server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down env server")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		err := srv.Shutdown(shutdownCtx)
		s.CloseAll()
		return err
	}
}

// Len returns the number of live environments.
func (s *Server) Len() int {
	return s.envs.Len()
}

// Sweep drops environments idle longer than the configured timeout and
// returns how many were removed.
func (s *Server) Sweep() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}
	expired := s.envs.Sweep(s.opts.IdleTimeout)
	for id, e := range expired {
		s.close(id, e, "expired")
	}
	return len(expired)
}

// CloseAll drops every environment, finishing any recordings.
func (s *Server) CloseAll() {
	for _, id := range s.envs.IDs() {
		if e, ok := s.envs.Remove(id); ok {
			s.close(id, e, "shutdown")
		}
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	if s.opts.IdleTimeout <= 0 {
		return
	}
	interval := s.opts.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("swept idle envs", "count", n, "live", s.envs.Len())
			}
		}
	}
}

// close marks an entry unusable and finishes its recording.
func (s *Server) close(id string, e *envEntry, why string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	s.finishRecording(id, e, "stopped")
	s.logger.Debug("env closed", "id", id, "reason", why)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}
