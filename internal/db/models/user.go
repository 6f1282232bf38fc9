// Package models - user.go defines the User model for helpdesk accounts along with
// the Role enumeration and the JSONB-backed fine-grained permission map for agents.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role represents a user's role within the platform.
type Role string

const (
	// RoleAdmin is the privileged global administrator. Admins are not bound to a
	// tenant and bypass tenant scoping entirely.
	RoleAdmin Role = "ADMIN"
	// RoleTenantAdmin administers a single tenant and bypasses fine-grained
	// permission checks within that tenant.
	RoleTenantAdmin Role = "TENANT_ADMIN"
	// RoleAgent is a support agent whose abilities are governed by a per-user
	// permission map.
	RoleAgent Role = "AGENT"
	// RoleUser is an end user who can raise and follow their own tickets.
	RoleUser Role = "USER"
)

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTenantAdmin, RoleAgent, RoleUser:
		return true
	}
	return false
}

// PermissionMap is the fine-grained permission set carried by agent accounts,
// stored as JSONB. Only flags explicitly set to true grant the permission.
type PermissionMap map[string]bool

// Value implements driver.Valuer for JSONB storage.
func (p PermissionMap) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (p *PermissionMap) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("permission map: cannot scan %T", src)
	}
	return json.Unmarshal(b, p)
}

// User represents a helpdesk account. TenantID is nil only for global admins.
type User struct {
	ID          string        `db:"id"`
	TenantID    *string       `db:"tenant_id"`
	Email       string        `db:"email"`
	Name        string        `db:"name"`
	Role        Role          `db:"role"`
	Permissions PermissionMap `db:"permissions"`
	Active      bool          `db:"active"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}
