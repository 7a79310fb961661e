package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TenantModel extends BaseModel with tenant ownership
type TenantModel struct {
	BaseModel
	TenantID int64 `json:"tenant_id" db:"tenant_id"`
}

// scanEnum reads a text column into s, rejecting anything valid does not accept.
func scanEnum(value interface{}, valid func(string) bool, kind string) (string, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return "", fmt.Errorf("%s: null value", kind)
	default:
		return "", fmt.Errorf("%s: unsupported type %T", kind, value)
	}
	if !valid(s) {
		return "", fmt.Errorf("%s: unknown value %q", kind, s)
	}
	return s, nil
}

func enumValue(s string) (driver.Value, error) {
	return s, nil
}
