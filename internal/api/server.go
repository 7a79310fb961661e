package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/auth"
	"github.com/tenantnotes/notes-server/internal/config"
	"github.com/tenantnotes/notes-server/internal/events"
	"github.com/tenantnotes/notes-server/internal/metrics"
	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
	"github.com/tenantnotes/notes-server/internal/tenancy"
	"github.com/tenantnotes/notes-server/internal/validation"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	tokens    *auth.JWTManager
	authn     *tenancy.Authenticator
	resolver  *tenancy.Resolver
	limiter   *tenancy.PlanLimiter
	publisher events.Publisher
	metrics   *metrics.Metrics
	validator *validation.Validator
	router    chi.Router
	server    *http.Server
}

// Option configures a RESTServer
type Option func(*RESTServer)

// WithPublisher sets the domain event publisher
func WithPublisher(p events.Publisher) Option {
	return func(s *RESTServer) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics collectors and exposes them on /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RESTServer) {
		s.metrics = m
	}
}

// WithTokenManager replaces the token manager built from configuration
func WithTokenManager(m *auth.JWTManager) Option {
	return func(s *RESTServer) {
		s.tokens = m
	}
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, opts ...Option) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		tokens:    auth.NewJWTManager(&cfg.JWT),
		publisher: events.NopPublisher{},
		validator: validation.NewValidator(),
		router:    chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.authn = tenancy.NewAuthenticator(s.tokens, store)
	s.resolver = tenancy.NewResolver(store, cfg.Tenancy.ReservedSubdomains)
	s.limiter = tenancy.NewPlanLimiter(store, *cfg.Plans.FreeNoteLimit,
		tenancy.WithRejectHook(func(t *models.Tenant) {
			if s.metrics != nil {
				s.metrics.PlanLimitReached(string(t.Plan))
			}
		}),
	)

	s.setupRoutes()

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.API.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.API.RequestTimeout))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.Get("/health", s.HandleHealth)
	s.router.Get("/", s.HandleRoot)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// Handler returns the root HTTP handler
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
