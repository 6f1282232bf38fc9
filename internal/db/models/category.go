// Package models - category.go defines the Category model used to group tickets
// within a tenant.
package models

import "time"

// Category represents a tenant-scoped ticket category.
type Category struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
