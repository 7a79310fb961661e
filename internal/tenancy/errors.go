// Package tenancy binds every request to exactly one tenant and decides
// whether the caller may act on it.
//
// A request passes through the Authenticator, the Resolver and the Guard, in
// that order, before any handler reads or writes tenant data. Note creation
// additionally goes through the PlanLimiter.
package tenancy

import "errors"

// Authorization errors. Each maps onto exactly one HTTP status.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrTenantNotSpecified = errors.New("tenant not specified")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantAccessDenied = errors.New("access denied to this tenant")
	ErrInsufficientRole   = errors.New("insufficient role")
	ErrPlanLimitReached   = errors.New("plan limit reached")
)
