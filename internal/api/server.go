// Package api provides the HTTP API server and handlers for the tag store.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/ratelimit"
	"github.com/inkwell/tagstore/internal/sse"
	"github.com/inkwell/tagstore/internal/store"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        store.Store
	services     *Services
	sseHandler   *sse.Handler
	sseManager   *sse.Manager
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
	writeLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st store.Store, services *Services, sseHandler *sse.Handler, sseManager *sse.Manager, logger *slog.Logger) *Server {
	s := &Server{
		store:        st,
		services:     services,
		sseHandler:   sseHandler,
		sseManager:   sseManager,
		router:       chi.NewRouter(),
		logger:       logger,
		writeLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}

	// chi requires middleware before any route, and humachi adds routes on Register.
	s.setupMiddleware(cfg.Server.CORSAllowedOrigins)

	humaConfig := huma.DefaultConfig("Tagstore API", APIVersion)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.writeLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RateLimitMiddleware(s.writeLimiter, s.logger))
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerNodeTagRoutes()
	s.registerRelationRoutes()

	// Live streams are plain chi: huma operations cannot hold a response open.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/workspaces/{workspace}/live/{view}", s.sseHandler.ServeHTTP)
	}
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
