// Package server provides the HTTP server and routing for spendlens.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/progress"
	"github.com/aristath/spendlens/pkg/logger"
)

// requestTimeout bounds request/response handlers. Websocket routes are not subject to it.
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Analyzer    Analyzer
	Registry    *progress.Registry
	Port        int
	DevMode     bool
	Version     string
	StartedAt   time.Time
	SendTimeout time.Duration
}

// Server represents the HTTP server
type Server struct {
	router           *chi.Mux
	server           *http.Server
	log              zerolog.Logger
	port             int
	version          string
	registry         *progress.Registry
	analysisHandlers *AnalysisHandlers
	systemHandlers   *SystemHandlers
	wsHandler        *WebSocketHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Registry == nil {
		cfg.Registry = progress.NewRegistry(cfg.SendTimeout, cfg.Log)
	}

	s := &Server{
		router:           chi.NewRouter(),
		log:              logger.Component(cfg.Log, "server"),
		port:             cfg.Port,
		version:          cfg.Version,
		registry:         cfg.Registry,
		analysisHandlers: NewAnalysisHandlers(cfg.Analyzer, cfg.Log),
		systemHandlers:   NewSystemHandlers(cfg.Registry, cfg.StartedAt, cfg.Log),
		wsHandler:        NewWebSocketHandler(cfg.Analyzer, cfg.Registry, cfg.SendTimeout, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		if !devMode {
			r.Use(middleware.Compress(5))
		}
		s.analysisHandlers.RegisterRoutes(r)
		s.systemHandlers.RegisterRoutes(r)
	})

	// Persistent progress channel
	s.wsHandler.RegisterRoutes(s.router)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Str("version", s.version).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown closes every live channel and then gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Int("subscribers", s.registry.Len()).Msg("Shutting down HTTP server")
	s.registry.CloseAll(ctx, "Server shutdown")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
