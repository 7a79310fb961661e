package models

import (
	"database/sql/driver"
	"fmt"
)

// Role is a user's authorization level within its tenant
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Value implements driver.Valuer
func (r Role) Value() (driver.Value, error) {
	return enumValue(string(r))
}

// Scan implements sql.Scanner
func (r *Role) Scan(value interface{}) error {
	s, err := scanEnum(value, func(s string) bool { return Role(s).Valid() }, "role")
	if err != nil {
		return err
	}
	*r = Role(s)
	return nil
}

// User represents a member of exactly one tenant
type User struct {
	TenantModel

	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password"`
	Role         Role   `json:"role" db:"role"`
}

// Identity is the authenticated caller, re-read from the store on every request
type Identity struct {
	UserID     int64  `json:"id"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	TenantID   int64  `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
	TenantPlan Plan   `json:"tenant_plan"`
	TenantName string `json:"tenant_name"`
}
