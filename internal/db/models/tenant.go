// Package models - tenant.go defines the Tenant model, the root of the
// isolation hierarchy. Every scoped resource carries a tenant id referencing a
// row in this table; deleting a tenant cascades to everything it owns.
package models

import "time"

// Tenant represents one customer organization on the platform.
type Tenant struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Domain    *string   `db:"domain"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
