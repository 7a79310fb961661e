package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/models"
)

var errInvalidBody = errors.New("invalid request body")

// HandleHealth health check handler
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/health",
		"api":     "/api",
	})
}

// decode reads a JSON body into dst and validates it. The returned error is
// safe to show to the client.
func (s *RESTServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return s.validator.Validate(dst)
}

// publish hands an event to the publisher. Failures are logged, never returned.
func (s *RESTServer) publish(r *http.Request, event *models.Event) {
	err := s.publisher.Publish(r.Context(), event)
	if s.metrics != nil {
		s.metrics.EventPublished(string(event.Type), err)
	}
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Str("type", string(event.Type)).Msg("Failed to publish event")
	}
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondCode responds with error and a machine-readable code
func (s *RESTServer) respondCode(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
