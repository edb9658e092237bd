package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/handler"
	"github.com/keydash/keydash/internal/server/middleware"
	"github.com/keydash/keydash/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	BaseURL         string
	ShutdownTimeout time.Duration

	// CORSOrigins lists the browser origins allowed to call the API with the
	// session cookie. Empty means BaseURL only. A "*" entry allows any origin
	// but turns credentialed requests off.
	CORSOrigins []string

	// LoginRateLimit caps sign-in attempts per client IP per minute; 0
	// disables it. The client IP is taken from X-Forwarded-For / X-Real-IP
	// when present, so the limit is only as trustworthy as the proxy in front
	// of the server. Deploy behind a proxy that overwrites those headers.
	LoginRateLimit int

	FirebaseAPIKey string // required by the API key listing endpoint
	Version        string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		LoginRateLimit:  10,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the datastore
// and the services built on it.
type Server struct {
	cfg        Config
	router     chi.Router
	tree       datastore.Tree
	authSvc    *service.AuthService
	keySvc     *service.APIKeyService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, tree datastore.Tree, authSvc *service.AuthService, keySvc *service.APIKeyService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		tree:    tree,
		authSvc: authSvc,
		keySvc:  keySvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.LoadSession(s.authSvc))
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(s.corsOptions()))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.BaseURL, s.cfg.Version).ServeSpec)

	secureCookie := strings.HasPrefix(s.cfg.BaseURL, "https://")
	sessions := handler.NewSessionHandler(s.authSvc, secureCookie, s.logger)
	apikeys := handler.NewAPIKeyHandler(s.keySvc, s.cfg.FirebaseAPIKey, s.logger)

	r.Route("/api", func(r chi.Router) {
		r.With(s.loginLimiter()...).Post("/auth/session", sessions.Login)
		r.Get("/auth/session", sessions.Session)
		r.Delete("/auth/session", sessions.Logout)

		r.Get("/apikeys", apikeys.List)
	})

	s.router = r
}

// corsOptions allows credentials only for an explicit origin list; browsers
// reject a wildcard origin on credentialed responses.
func (s *Server) corsOptions() cors.Options {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 && s.cfg.BaseURL != "" {
		origins = []string{s.cfg.BaseURL}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}

func (s *Server) loginLimiter() []func(http.Handler) http.Handler {
	if s.cfg.LoginRateLimit <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{middleware.RateLimit(s.cfg.LoginRateLimit)}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the datastore answers
// a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"datastore": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.tree.Ping(ctx); err != nil {
		s.logger.Warn("datastore ping failed", "error", err)
		checks["datastore"] = "unreachable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the datastore.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "base_url", s.cfg.BaseURL)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.tree.Close(); err != nil {
		s.logger.Warn("close datastore", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
