package tenancy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/models"
)

// PlanSetter changes a tenant's plan
type PlanSetter interface {
	SetTenantPlan(ctx context.Context, id int64, plan models.Plan) (*models.Tenant, error)
}

// Upgrade moves the tenant to the pro plan on behalf of one of its admins.
// Upgrading a pro tenant succeeds with changed set to false.
func Upgrade(ctx context.Context, store PlanSetter, id *models.Identity, t *models.Tenant) (tenant *models.Tenant, changed bool, err error) {
	if err := Bind(id, t); err != nil {
		return nil, false, err
	}
	if err := RequireRole(id, models.RoleAdmin); err != nil {
		return nil, false, err
	}
	if t.Plan == models.PlanPro {
		return t, false, nil
	}

	upgraded, err := store.SetTenantPlan(ctx, t.ID, models.PlanPro)
	if err != nil {
		return nil, false, fmt.Errorf("upgrade tenant %q: %w", t.Slug, err)
	}

	log.Info().
		Str("tenant", upgraded.Slug).
		Int64("user_id", id.UserID).
		Msg("Tenant upgraded to pro")
	return upgraded, true, nil
}
