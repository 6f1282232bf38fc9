// Package auth - permissions.go defines the fine-grained permission constants
// carried in agent permission maps, and helpers for validating permission names.
package auth

import (
	"errors"
	"fmt"
)

// Permission names a fine-grained capability an agent may hold. Admin and
// tenant-admin roles bypass these entirely; end users never hold any.
type Permission string

const (
	// Ticket permissions
	PermTicketsAssign Permission = "tickets:assign"
	PermTicketsClose  Permission = "tickets:close"
	PermTicketsDelete Permission = "tickets:delete"

	// Comment permissions
	PermCommentsInternal Permission = "comments:internal" // Post agent-only internal notes

	// Category permissions
	PermCategoriesManage Permission = "categories:manage"

	// Audit log permissions
	PermAuditRead Permission = "audit:read"
)

// AllPermissions returns every defined permission.
func AllPermissions() []Permission {
	return []Permission{
		PermTicketsAssign,
		PermTicketsClose,
		PermTicketsDelete,
		PermCommentsInternal,
		PermCategoriesManage,
		PermAuditRead,
	}
}

// IsValidPermission reports whether p names a defined permission.
func IsValidPermission(p Permission) bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// ValidatePermissionMap rejects permission maps that reference unknown
// permission names, so typos in an agent's grants fail loudly at write time
// instead of silently denying at check time.
func ValidatePermissionMap(perms map[string]bool) error {
	if len(perms) == 0 {
		return nil
	}
	var invalid []string
	for name := range perms {
		if !IsValidPermission(Permission(name)) {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("unknown permissions: %v", invalid)
	}
	return nil
}

// ErrInvalidPermission is returned when a caller names an unknown permission.
var ErrInvalidPermission = errors.New("invalid permission")
