// Package server exposes the relay's health, run history and host status
// over HTTP.
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

	"github.com/aristath/extrato-relay/internal/events"
	"github.com/aristath/extrato-relay/internal/relay"
)

// RunService is the part of relay.Runner the server drives.
type RunService interface {
	Run(ctx context.Context) (*relay.Summary, error)
	Busy() bool
	Last() *relay.Summary
}

// EventSource exposes recent progress events.
type EventSource interface {
	Recent(n int) []events.Event
}

// Schedule reports the next planned run.
type Schedule interface {
	NextRun() time.Time
}

// Config holds server dependencies.
type Config struct {
	Log          zerolog.Logger
	Port         int
	Runs         RunService
	Events       EventSource // optional
	Schedule     Schedule    // optional
	Destinations int
	// RunContext bounds runs started over HTTP. It must outlive requests.
	RunContext   context.Context
}

// Server is the status HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	runs           RunService
	runCtx         context.Context
	events         EventSource
	systemHandlers *SystemHandlers
}

// New creates the server and its routes.
func New(cfg Config) *Server {
	runCtx := cfg.RunContext
	if runCtx == nil {
		runCtx = context.Background()
	}

	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router:         chi.NewRouter(),
		log:            log,
		port:           cfg.Port,
		runs:           cfg.Runs,
		runCtx:         runCtx,
		events:         cfg.Events,
		systemHandlers: NewSystemHandlers(log, cfg.Runs, cfg.Schedule, cfg.Destinations),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	// Timeout
	s.router.Use(middleware.Timeout(10 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/last", s.handleLastRun)
			r.Post("/", s.handleTriggerRun)
		})
		r.Get("/events", s.handleRecentEvents)
		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
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
