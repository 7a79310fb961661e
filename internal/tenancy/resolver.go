package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
)

// TenantReader looks tenants up by slug
type TenantReader interface {
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// Sources are the places a request can name its tenant
type Sources struct {
	// PathSlug is the slug from the route, if the route has one
	PathSlug string
	// Identity is the authenticated caller, if any
	Identity *models.Identity
	// Host is the request's Host header
	Host string
}

// Resolver determines the tenant a request targets
type Resolver struct {
	store    TenantReader
	reserved map[string]struct{}
}

// NewResolver creates a resolver. Subdomains listed in reserved never name a tenant.
func NewResolver(store TenantReader, reserved []string) *Resolver {
	r := &Resolver{
		store:    store,
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, s := range reserved {
		r.reserved[strings.ToLower(s)] = struct{}{}
	}
	return r
}

// SelectSlug picks the tenant slug by strict priority: path, identity, subdomain.
// It returns "" when no source names a tenant.
func (r *Resolver) SelectSlug(src Sources) string {
	if src.PathSlug != "" {
		return src.PathSlug
	}
	if src.Identity != nil && src.Identity.TenantSlug != "" {
		return src.Identity.TenantSlug
	}
	return r.subdomain(src.Host)
}

// subdomain returns the first label of host when it can name a tenant
func (r *Resolver) subdomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return ""
	}

	label, rest, ok := strings.Cut(host, ".")
	if !ok || label == "" || rest == "" {
		return ""
	}
	if _, reserved := r.reserved[label]; reserved {
		return ""
	}
	return label
}

// Resolve returns the tenant named by src
func (r *Resolver) Resolve(ctx context.Context, src Sources) (*models.Tenant, error) {
	slug := r.SelectSlug(src)
	if slug == "" {
		return nil, ErrTenantNotSpecified
	}

	t, err := r.store.GetTenantBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrTenantNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant %q: %w", slug, err)
	}
	return t, nil
}
