// Package gateway provides the HTTP surface over the orchestrator.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hostpilot/internal/config"
	"hostpilot/internal/gateway/handlers"
	"hostpilot/internal/gateway/middleware"
	"hostpilot/internal/tools"
	"hostpilot/pkg/logger"
)

// Deps are the collaborators served over HTTP. Facts and History may be nil when
// storage is disabled; Session may be nil.
type Deps struct {
	Runner   handlers.CommandRunner
	Registry *tools.Registry
	Facts    handlers.FactsLister
	History  handlers.CommandHistory
	Session  func() string
	Version  string
}

// Server represents the HTTP gateway server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	config      config.GatewayConfig
	rateLimiter *middleware.RateLimiter
	watcher     *Watcher
}

// NewServer creates a new gateway server.
func NewServer(cfg config.GatewayConfig, deps Deps) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8787
	}

	router := mux.NewRouter()
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit))

	// Middleware chain: Recovery -> Logging -> RateLimit
	handler := middleware.Recovery(
		middleware.Logging(
			rateLimiter.RateLimit(router),
		),
	)

	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:      router,
		config:      cfg,
		rateLimiter: rateLimiter,
	}
	s.setupRoutes(deps)
	return s
}

// setupRoutes configures the server routes.
func (s *Server) setupRoutes(deps Deps) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handlers.HealthHandler(deps.Version, deps.Registry.Len(), deps.Session)).Methods(http.MethodGet)
	api.HandleFunc("/commands", handlers.CommandHandler(deps.Runner)).Methods(http.MethodPost)
	api.HandleFunc("/commands", handlers.CommandHistoryHandler(deps.History)).Methods(http.MethodGet)
	api.HandleFunc("/tools", handlers.ToolsHandler(deps.Registry)).Methods(http.MethodGet)
	api.HandleFunc("/tools/{name}", handlers.ToolHandler(deps.Registry)).Methods(http.MethodGet)
	api.HandleFunc("/facts", handlers.FactsHandler(deps.Facts)).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusNotFound, handlers.ErrCodeNotFound, "no route for "+r.URL.Path)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusMethodNotAllowed, handlers.ErrCodeInvalidRequest, r.Method+" is not allowed on "+r.URL.Path)
	})
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the underlying router for testing.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetWatcher sets the config watcher stopped together with the server.
func (s *Server) SetWatcher(w *Watcher) {
	s.watcher = w
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	handlers.InitStartTime()

	logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("Starting gateway server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("Shutting down gateway server")

	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
