package models

import (
	"database/sql/driver"
	"fmt"
)

// Plan is a tenant's subscription tier
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// ParsePlan parses a plan name
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Value implements driver.Valuer
func (p Plan) Value() (driver.Value, error) {
	return enumValue(string(p))
}

// Scan implements sql.Scanner
func (p *Plan) Scan(value interface{}) error {
	s, err := scanEnum(value, func(s string) bool { return Plan(s).Valid() }, "plan")
	if err != nil {
		return err
	}
	*p = Plan(s)
	return nil
}

// Tenant represents an organization that owns users and notes
type Tenant struct {
	BaseModel

	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
	Plan Plan   `json:"plan" db:"plan"`
}

// TenantSummary is a tenant together with its note usage
type TenantSummary struct {
	*Tenant

	NoteCount int  `json:"note_count"`
	NoteLimit *int `json:"note_limit"`
}
