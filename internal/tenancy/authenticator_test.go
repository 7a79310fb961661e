package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantnotes/notes-server/internal/auth"
	"github.com/tenantnotes/notes-server/internal/config"
	"github.com/tenantnotes/notes-server/internal/models"
)

func newTokens() *auth.JWTManager {
	return auth.NewJWTManager(&config.JWTConfig{Secret: "test-secret", Issuer: "notes-server", TokenTTL: time.Hour})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"Bearer abc def", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, err := BearerToken(tt.header)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	w := newWorld(t)
	tokens := newTokens()
	a := NewAuthenticator(tokens, w.store)
	ctx := context.Background()

	user := w.users["user@acme.test"]
	token, err := tokens.Issue(user.ID, user.TenantID)
	require.NoError(t, err)

	id, err := a.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, "acme", id.TenantSlug)
	assert.Equal(t, models.RoleMember, id.Role)
	assert.Equal(t, models.PlanFree, id.TenantPlan)
}

func TestAuthenticateReadsFreshRoleAndPlan(t *testing.T) {
	w := newWorld(t)
	tokens := newTokens()
	a := NewAuthenticator(tokens, w.store)
	ctx := context.Background()

	user := w.users["admin@acme.test"]
	token, err := tokens.Issue(user.ID, user.TenantID)
	require.NoError(t, err)

	_, err = w.store.SetTenantPlan(ctx, w.acme.ID, models.PlanPro)
	require.NoError(t, err)

	id, err := a.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, id.TenantPlan)
}

func TestAuthenticateFailures(t *testing.T) {
	w := newWorld(t)
	tokens := newTokens()
	a := NewAuthenticator(tokens, w.store)
	ctx := context.Background()

	user := w.users["user@acme.test"]

	t.Run("missing header", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		old := tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
		token, err := old.Issue(user.ID, user.TenantID)
		require.NoError(t, err)

		_, err = a.Authenticate(ctx, "Bearer "+token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("tenant mismatch", func(t *testing.T) {
		token, err := tokens.Issue(user.ID, w.globex.ID)
		require.NoError(t, err)

		_, err = a.Authenticate(ctx, "Bearer "+token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("deleted user", func(t *testing.T) {
		gone := w.users["user@globex.test"]
		token, err := tokens.Issue(gone.ID, gone.TenantID)
		require.NoError(t, err)
		require.NoError(t, w.store.DeleteUser(ctx, gone.ID))

		_, err = a.Authenticate(ctx, "Bearer "+token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := auth.NewJWTManager(&config.JWTConfig{Secret: "other", Issuer: "notes-server", TokenTTL: time.Hour})
		token, err := other.Issue(user.ID, user.TenantID)
		require.NoError(t, err)

		_, err = a.Authenticate(ctx, "Bearer "+token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}
