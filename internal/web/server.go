// Package web provides the HTTP server for uploading raw tables and
// receiving prepared tables or reports.
package web

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/paraprep/internal/config"
	"github.com/JonMunkholm/paraprep/internal/logging"
	"github.com/JonMunkholm/paraprep/internal/metrics"
	"github.com/JonMunkholm/paraprep/internal/prepare"
	mw "github.com/JonMunkholm/paraprep/internal/web/middleware"
)

// Server is the HTTP server for the preparation service.
type Server struct {
	cfg     *config.Config
	metrics *metrics.Manager
	limiter *prepare.Limiter
	router  *chi.Mux
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics instruments requests and preparation runs and serves /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		limiter: prepare.NewLimiter(cfg.Server.MaxConcurrentRuns, cfg.Server.RunWait),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Server.RateLimit > 0 {
		s.router.Use(mw.RateLimit(s.cfg.Server.RateLimit, time.Minute, writeRateLimited))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/recipes", s.handleListRecipes)

		// Preparation
		r.Post("/prepare/{recipe}", s.handlePrepare)

		// Reports
		r.Post("/describe", s.handleDescribe)
		r.Post("/missing", s.handleMissing)
		r.Post("/categories", s.handleCategories)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr, "metrics", s.metrics != nil)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// WaitForRuns blocks until every in-flight preparation run completes or ctx ends.
func (s *Server) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// RunStatus reports preparation slot usage.
func (s *Server) RunStatus() prepare.LimiterStatus {
	return s.limiter.Status()
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The upload page has no scripts; inline styles only
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeRateLimited answers a request over the rate limit.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeJSONStatus(w, r, http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate limit exceeded",
		Message: "Too many requests",
		Action:  "Wait a minute and try again",
		Code:    "REQ003",
	})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	writeJSONStatus(w, r, http.StatusOK, v)
}

// writeJSONStatus writes v with status. v is encoded before the header is
// sent so an encoding failure still yields a 500.
func writeJSONStatus(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
		http.Error(w, `{"error":"internal error","code":"ERR000"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logging.FromContext(r.Context()).Debug("write response", "error", err)
	}
}
