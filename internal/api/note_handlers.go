package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
	"github.com/tenantnotes/notes-server/internal/tenancy"
)

type noteRequest struct {
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Content string `json:"content" validate:"required,max=100000"`
}

// noteID parses the {id} path parameter. Ids that can never exist are
// reported the same way as missing notes.
func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *RESTServer) noteNotFound(w http.ResponseWriter) {
	s.respondCode(w, http.StatusNotFound, CodeNotFound, "note not found")
}

// HandleListNotes lists the tenant's notes, most recently updated first
func (s *RESTServer) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	_, tenant := scope(r)

	notes, err := s.store.ListNotes(r.Context(), tenant.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"notes": notes,
		"count": len(notes),
	})
}

// HandleGetNote returns a single note
func (s *RESTServer) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	_, tenant := scope(r)
	id, ok := noteID(r)
	if !ok {
		s.noteNotFound(w)
		return
	}

	note, err := s.store.GetNote(r.Context(), tenant.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.noteNotFound(w)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"note": note,
	})
}

// HandleCreateNote creates a note, subject to the tenant's plan limit
func (s *RESTServer) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	identity, tenant := scope(r)

	var req noteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondCode(w, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	note, err := s.limiter.CreateNote(r.Context(), identity, tenant, req.Title, req.Content)
	if errors.Is(err, tenancy.ErrPlanLimitReached) {
		s.publish(r, models.NewEvent(models.EventTypePlanLimitHit, identity))
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	event := models.NewEvent(models.EventTypeNoteCreated, identity)
	event.NoteID = &note.ID
	s.publish(r, event)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"note":    note,
		"message": "note created",
	})
}

// HandleUpdateNote replaces a note's title and content
func (s *RESTServer) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	identity, tenant := scope(r)
	id, ok := noteID(r)
	if !ok {
		s.noteNotFound(w)
		return
	}

	var req noteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondCode(w, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	note, err := s.store.UpdateNote(r.Context(), tenant.ID, id, req.Title, req.Content)
	if errors.Is(err, storage.ErrNotFound) {
		s.noteNotFound(w)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	event := models.NewEvent(models.EventTypeNoteUpdated, identity)
	event.NoteID = &note.ID
	s.publish(r, event)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"note":    note,
		"message": "note updated",
	})
}

// HandleDeleteNote deletes a note
func (s *RESTServer) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	identity, tenant := scope(r)
	id, ok := noteID(r)
	if !ok {
		s.noteNotFound(w)
		return
	}

	err := s.store.DeleteNote(r.Context(), tenant.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.noteNotFound(w)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	event := models.NewEvent(models.EventTypeNoteDeleted, identity)
	event.NoteID = &id
	s.publish(r, event)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "note deleted",
	})
}
