package api

import (
	"errors"
	"net/http"

	"github.com/tenantnotes/notes-server/internal/storage"
	"github.com/tenantnotes/notes-server/internal/tenancy"
	"github.com/tenantnotes/notes-server/pkg/crypto"
)

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := s.decode(w, r, &req); err != nil {
		s.respondCode(w, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	// Get user
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		// Keep the response time of unknown emails close to wrong passwords
		crypto.VerifyPassword(req.Password, "")
		s.respondCode(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Verify password
	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondCode(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		return
	}

	identity, err := s.store.GetIdentity(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.TenantID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(s.tokens.TTL().Seconds()),
		"user":       identity,
		"message":    "login successful",
	})
}

// HandleGetCurrentUser returns the caller's identity as currently stored
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := tenancy.IdentityFrom(r.Context())
	if !ok {
		s.fail(w, r, tenancy.ErrUnauthenticated)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": id,
	})
}
