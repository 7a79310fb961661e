package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tenantnotes/notes-server/internal/auth"
	"github.com/tenantnotes/notes-server/internal/storage"
	"github.com/tenantnotes/notes-server/internal/tenancy"
)

// Error codes returned in the "code" field of error bodies
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTenantNotSpecified = "TENANT_NOT_SPECIFIED"
	CodeTenantNotFound     = "TENANT_NOT_FOUND"
	CodeTenantAccessDenied = "TENANT_ACCESS_DENIED"
	CodeInsufficientRole   = "INSUFFICIENT_ROLE"
	CodePlanLimitReached   = "PLAN_LIMIT_REACHED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// apiError is the HTTP rendition of a domain error
type apiError struct {
	status  int
	code    string
	message string
}

// classify maps a domain error onto its status, code and client message.
// Unknown errors become 500 with a generic message.
func classify(err error) apiError {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return apiError{http.StatusUnauthorized, CodeTokenExpired, "token expired"}
	case errors.Is(err, tenancy.ErrUnauthenticated):
		return apiError{http.StatusUnauthorized, CodeUnauthenticated, "authentication required"}
	case errors.Is(err, tenancy.ErrTenantNotSpecified):
		return apiError{http.StatusBadRequest, CodeTenantNotSpecified, "tenant not specified"}
	case errors.Is(err, tenancy.ErrTenantNotFound):
		return apiError{http.StatusNotFound, CodeTenantNotFound, "tenant not found"}
	case errors.Is(err, tenancy.ErrTenantAccessDenied):
		return apiError{http.StatusForbidden, CodeTenantAccessDenied, "access denied to this tenant"}
	case errors.Is(err, tenancy.ErrInsufficientRole):
		return apiError{http.StatusForbidden, CodeInsufficientRole, "insufficient role"}
	case errors.Is(err, tenancy.ErrPlanLimitReached):
		return apiError{http.StatusForbidden, CodePlanLimitReached, "note limit reached for the free plan, upgrade to pro for unlimited notes"}
	case errors.Is(err, storage.ErrNotFound):
		return apiError{http.StatusNotFound, CodeNotFound, "not found"}
	case errors.Is(err, storage.ErrDuplicateKey):
		return apiError{http.StatusConflict, CodeConflict, "already exists"}
	default:
		return apiError{http.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

// authorizationFailure reports whether the code is an authentication or
// authorization refusal
func authorizationFailure(code string) bool {
	switch code {
	case CodeUnauthenticated, CodeTokenExpired, CodeTenantNotSpecified,
		CodeTenantNotFound, CodeTenantAccessDenied, CodeInsufficientRole:
		return true
	}
	return false
}

// fail writes the error response for err
func (s *RESTServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	logger := zerolog.Ctx(r.Context())

	if e.status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("code", e.code).Msg("Request refused")
	}
	if s.metrics != nil && authorizationFailure(e.code) {
		s.metrics.AuthorizationFailed(e.code)
	}

	s.respondCode(w, e.status, e.code, e.message)
}
