package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/auth"
	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
)

// TokenVerifier verifies session tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// IdentityReader loads a user joined with its tenant
type IdentityReader interface {
	GetIdentity(ctx context.Context, userID int64) (*models.Identity, error)
}

// Authenticator turns an Authorization header into a fresh identity
type Authenticator struct {
	tokens TokenVerifier
	store  IdentityReader
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(tokens TokenVerifier, store IdentityReader) *Authenticator {
	return &Authenticator{tokens: tokens, store: store}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
		return "", fmt.Errorf("%w: malformed authorization header", ErrUnauthenticated)
	}
	return token, nil
}

// Authenticate verifies the bearer token and reads the caller's current role
// and tenant plan from the store. Nothing but identity is trusted from the token.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*models.Identity, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := a.tokens.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	id, err := a.store.GetIdentity(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Debug().Int64("user_id", claims.UserID).Msg("Token refers to a user that no longer exists")
		return nil, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	if id.TenantID != claims.TenantID {
		log.Warn().
			Int64("user_id", id.UserID).
			Int64("token_tenant_id", claims.TenantID).
			Int64("tenant_id", id.TenantID).
			Msg("Token tenant does not match user tenant")
		return nil, fmt.Errorf("%w: tenant mismatch", ErrUnauthenticated)
	}

	return id, nil
}
