// Package models - audit_log.go defines the AuditLog model for recording
// security-relevant events, capturing actor, action, affected resource, client IP,
// user agent, and arbitrary metadata. Entries are always tenant-attributed, even
// for admin-initiated actions against a specific tenant, and are append-only.
package models

import "time"

// AuditLog represents one audit log entry.
type AuditLog struct {
	ID           string
	TenantID     string // Required: audit entries are always tenant-attributed
	UserID       *string // Nullable for system actions
	Action       string  // "ticket.create", "ticket.delete", "tenant.create"
	ResourceType *string // "ticket", "comment", "category", "user", "tenant"
	ResourceID   *string // UUID of affected resource
	Metadata     map[string]interface{} // JSONB: additional context
	IPAddress    *string
	UserAgent    *string
	CreatedAt    time.Time
}
