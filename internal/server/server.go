// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"livetrack/internal/config"
	"livetrack/internal/domain/location"
	"livetrack/internal/domain/session"
	"livetrack/internal/server/handlers"
	"livetrack/internal/service/tracking"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	wsConfig handlers.WebSocketConfig,
	logger *zap.Logger,
	registry *tracking.Registry,
	ingestor location.Ingestor,
	querier location.Querier,
	sessions session.Service,
	storage ...handlers.Pinger,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create handler dependencies
	locationHandler := handlers.NewLocationHandler(ingestor, querier, logger)
	sessionHandler := handlers.NewSessionHandler(sessions, logger)
	healthHandler := handlers.NewHealthHandler(registry, logger, storage...)
	hub := handlers.NewWebSocketHub(registry, ingestor, wsConfig, logger)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		// Health check
		r.Get("/health", healthHandler.GetHealth)

		// Locations
		r.Post("/location", locationHandler.PostLocation)
		r.Get("/location/{trackId}", locationHandler.GetLatest)
		r.Get("/path/{trackId}", locationHandler.GetPath)
		r.Get("/tracks/active", locationHandler.GetActiveTracks)
		r.Delete("/cleanup", locationHandler.Cleanup)

		// Sessions
		r.Get("/session/{sessionId}", sessionHandler.GetSession)
		r.Post("/session/{sessionId}", sessionHandler.UpdateSession)
	})

	// WebSocket endpoint for location pushes
	router.Handle("/ws", hub)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger writes one access log line per request
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
