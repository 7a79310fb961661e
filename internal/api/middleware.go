package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/tenancy"
)

// requestLogger attaches a request-scoped logger to the context and logs
// each completed request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// authenticate verifies the bearer token and stores the caller's identity
func (s *RESTServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authn.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		ctx := tenancy.WithIdentity(r.Context(), id)
		ctx = log.Ctx(ctx).With().Int64("user_id", id.UserID).Logger().WithContext(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveTenant picks the target tenant from the path, the identity or the host
func (s *RESTServer) resolveTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := tenancy.IdentityFrom(r.Context())
		t, err := s.resolver.Resolve(r.Context(), tenancy.Sources{
			PathSlug: chi.URLParam(r, "slug"),
			Identity: id,
			Host:     r.Host,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithTenant(r.Context(), t)))
	})
}

// bindTenant refuses requests whose identity belongs to another tenant
func (s *RESTServer) bindTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := tenancy.IdentityFrom(r.Context())
		t, _ := tenancy.TenantFrom(r.Context())
		if err := tenancy.Bind(id, t); err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole refuses callers whose role is not among roles
func (s *RESTServer) requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := tenancy.IdentityFrom(r.Context())
			if err := tenancy.RequireRole(id, roles...); err != nil {
				s.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// scope returns the identity and tenant bound by the middleware chain
func scope(r *http.Request) (*models.Identity, *models.Tenant) {
	id, _ := tenancy.IdentityFrom(r.Context())
	t, _ := tenancy.TenantFrom(r.Context())
	return id, t
}
