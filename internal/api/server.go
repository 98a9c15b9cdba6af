// Package api provides the HTTP API server and handlers for the diary.
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

	"github.com/listenupapp/diary-server/internal/http/response"
	"github.com/listenupapp/diary-server/internal/store"
)

// Options holds server settings taken from configuration.
type Options struct {
	CORSOrigins        []string // Empty disables CORS
	LoginRatePerMinute int      // Login and register attempts per client IP
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	state           Pinger
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// state may be nil; health then reports session state as degraded.
func NewServer(st store.Store, services *Services, state Pinger, opts Options, logger *slog.Logger) *Server {
	rate := opts.LoginRatePerMinute
	if rate < 1 {
		rate = 10
	}

	s := &Server{
		store:           st,
		services:        services,
		state:           state,
		router:          chi.NewRouter(),
		logger:          logger,
		authRateLimiter: NewRateLimiter(rate, time.Minute, rate),
	}

	s.setupMiddleware(opts.CORSOrigins)
	s.setupAPI()
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(limitPaths(
		RateLimitMiddleware(s.authRateLimiter, s.logger),
		http.MethodPost, "/api/v1/auth/login", "/api/v1/auth/register",
	))
	s.router.Use(authMiddleware(s.services.Auth))

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Not found.", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "Method not allowed.", s.logger)
	})
}

func (s *Server) setupAPI() {
	humaConfig := huma.DefaultConfig("Diary API", "1.0.0")
	humaConfig.Info.Description = "Diary entries, hierarchical tags and keyword search."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerEntryRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()
}

// bearer is the security requirement of every authenticated operation.
var bearer = []map[string][]string{{"bearer": {}}}
