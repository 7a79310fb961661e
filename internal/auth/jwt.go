package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tenantnotes/notes-server/internal/config"
)

// Token verification errors
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// JWTManager issues and verifies session tokens
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.JWTConfig) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	c := *m
	c.now = now
	return &c
}

// TTL returns how long issued tokens stay valid
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Claims represents JWT claims. Only identity is carried; role and plan are
// always read fresh from the store.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64 `json:"user_id"`
	TenantID int64 `json:"tenant_id"`
}

// Issue generates a signed token for the user in the tenant
func (m *JWTManager) Issue(userID, tenantID int64) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			ID:        uuid.New().String(),
		},
		UserID:   userID,
		TenantID: tenantID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its claims. It fails with
// ErrTokenExpired past the expiry and ErrTokenInvalid for anything else.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		// Claims are only validated once the signature has been accepted.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID <= 0 || claims.TenantID <= 0 {
		return nil, ErrTokenInvalid
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return m.secret, nil
}
