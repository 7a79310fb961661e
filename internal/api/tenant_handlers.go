package api

import (
	"net/http"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/tenancy"
)

// HandleGetTenant returns the tenant with its note usage
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	_, tenant := scope(r)

	count, err := s.store.CountNotes(r.Context(), tenant.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenant": &models.TenantSummary{
			Tenant:    tenant,
			NoteCount: count,
			NoteLimit: s.limiter.NoteLimit(tenant.Plan),
		},
	})
}

// HandleUpgradeTenant moves the tenant to the pro plan. Upgrading a pro
// tenant succeeds without changes.
func (s *RESTServer) HandleUpgradeTenant(w http.ResponseWriter, r *http.Request) {
	identity, tenant := scope(r)

	tenant, changed, err := tenancy.Upgrade(r.Context(), s.store, identity, tenant)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	message := "tenant already on the pro plan"
	if changed {
		message = "tenant upgraded to the pro plan"
		event := models.NewEvent(models.EventTypeTenantUpgraded, identity)
		event.Plan = tenant.Plan
		s.publish(r, event)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenant":  tenant,
		"message": message,
	})
}
