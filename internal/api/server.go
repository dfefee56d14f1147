// Package api serves the taskboard JSON API and hosts the browser UI
// behind the same middleware chain.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marcus/taskboard/internal/config"
	"github.com/marcus/taskboard/internal/reqctx"
	"github.com/marcus/taskboard/internal/store"
)

// maxBodyBytes caps request bodies; todo payloads are a few KB at most.
const maxBodyBytes = 1 << 20

// Server is the taskboard HTTP server.
type Server struct {
	config      config.Config
	http        *http.Server
	store       *store.Store
	logger      *slog.Logger
	metrics     *Metrics
	rateLimiter *RateLimiter
	proxies     reqctx.Proxies
	web         http.Handler
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithWeb mounts the browser UI at "/".
func WithWeb(h http.Handler) Option {
	return func(s *Server) { s.web = h }
}

// WithLogger sets the base logger; per-request loggers derive from it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server with the given config and store.
func NewServer(cfg config.Config, st *store.Store, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, errors.New("api: nil store")
	}
	proxies, err := reqctx.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:      cfg,
		store:       st,
		logger:      slog.Default(),
		metrics:     NewMetrics(),
		rateLimiter: NewRateLimiter(),
		proxies:     proxies,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins listening for HTTP requests (non-blocking) and starts the
// maintenance loop. It returns the bound address.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	return ln.Addr(), nil
}

func (s *Server) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cleanup panic", "panic", r)
		}
	}()

	interval := s.config.CleanupInterval.Std()
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// CleanupResult reports what one maintenance pass removed.
type CleanupResult struct {
	Sessions        int64
	AuthEvents      int64
	RateLimitEvents int64
	Buckets         int
}

// Cleanup drops expired sessions, audit rows past retention and stale
// rate limit buckets. Errors are logged; the pass continues.
func (s *Server) Cleanup() CleanupResult {
	var res CleanupResult
	var err error

	if res.Sessions, err = s.store.CleanupExpiredSessions(); err != nil {
		s.logger.Error("cleanup expired sessions", "err", err)
	}
	if ret := s.config.AuthEventRetention.Std(); ret > 0 {
		if res.AuthEvents, err = s.store.CleanupAuthEvents(ret); err != nil {
			s.logger.Error("cleanup auth events", "err", err)
		}
	}
	if ret := s.config.RateLimitEventRetention.Std(); ret > 0 {
		if res.RateLimitEvents, err = s.store.CleanupRateLimitEvents(ret); err != nil {
			s.logger.Error("cleanup rate limit events", "err", err)
		}
	}
	res.Buckets = s.rateLimiter.Cleanup()

	if res.Sessions+res.AuthEvents+res.RateLimitEvents > 0 {
		s.logger.Info("cleanup",
			"sessions", res.Sessions,
			"auth_events", res.AuthEvents,
			"rate_limit_events", res.RateLimitEvents,
		)
	}
	return res
}

// Shutdown gracefully stops the server and the maintenance loop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.http.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	v1 := http.NewServeMux()
	v1.HandleFunc("POST /v1/auth/register", s.handleRegister)
	v1.HandleFunc("POST /v1/auth/login", s.handleLogin)
	v1.HandleFunc("POST /v1/auth/logout", s.requireAuth(s.handleLogout))
	v1.HandleFunc("GET /v1/me", s.requireAuth(s.withRateLimit(s.handleMe)))

	v1.HandleFunc("GET /v1/todos", s.requireAuth(s.withRateLimit(s.handleListTodos)))
	v1.HandleFunc("POST /v1/todos", s.requireAuth(s.withRateLimit(s.handleCreateTodo)))
	v1.HandleFunc("GET /v1/todos/{id}", s.requireAuth(s.withRateLimit(s.handleGetTodo)))
	v1.HandleFunc("PATCH /v1/todos/{id}", s.requireAuth(s.withRateLimit(s.handleUpdateTodo)))
	v1.HandleFunc("DELETE /v1/todos/{id}", s.requireAuth(s.withRateLimit(s.handleDeleteTodo)))
	v1.HandleFunc("POST /v1/todos/{id}/toggle", s.requireAuth(s.withRateLimit(s.handleToggleTodo)))
	v1.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})

	mux.Handle("/v1/", s.CORSMiddleware(v1))
	if s.web != nil {
		mux.Handle("/", s.web)
	}

	return chain(mux,
		requestIDMiddleware,
		clientIPMiddleware(s.proxies),
		loggerMiddleware(s.logger),
		accessLogMiddleware(s.metrics),
		recoveryMiddleware,
		maxBytesMiddleware(maxBodyBytes),
		authRateLimitMiddleware(s.rateLimiter, s.config.RateLimitAuth, s.store),
	)
}

// handleHealth returns a health check response, pinging the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
