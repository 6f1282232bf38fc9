// Package security implements the tenant-isolation security-context layer: the
// per-request fact of who is calling on behalf of which tenant, the guards that
// check it, and the binder that scopes it to the database connection running the
// request's queries.
//
// The flow for every request is resolve → bind → run → classify → unbind:
//
//	SessionContextResolver (resolver.go) derives a Context from the session.
//	AccessGuard (guard.go) checks role, permission, and tenant equality.
//	Binder (binder.go) applies the context to the connection and always releases it.
//
// A Context is created fresh per request, used read-only, and never cached or
// reused. No process-level mutable state exists in this package, so concurrent
// requests cannot influence each other's authorization outcome.
package security

import "fmt"

// Context is the immutable per-request security fact: tenant scope, admin flag,
// and acting user. It intentionally omits the caller's role; role checks and
// tenant isolation are orthogonal and composed separately (see guard.go).
type Context struct {
	// TenantID is the tenant the request is scoped to. Nil only for a global
	// admin caller.
	TenantID *string
	// IsAdmin is true only for the global administrator role.
	IsAdmin bool
	// UserID identifies the acting principal; nil for system-internal operations.
	UserID *string
}

// Validate rejects the one invalid shape: no tenant and not admin. Such a
// context must never reach the storage engine, so the binder calls this before
// applying any settings.
func (c Context) Validate() error {
	if c.TenantID == nil && !c.IsAdmin {
		return fmt.Errorf("context has no tenant scope and is not admin")
	}
	if c.TenantID != nil && *c.TenantID == "" {
		return fmt.Errorf("context has an empty tenant id")
	}
	return nil
}

// TenantScope returns the tenant-scope setting value for the bound connection:
// the tenant id, or the empty string for a global admin.
func (c Context) TenantScope() string {
	if c.TenantID == nil {
		return ""
	}
	return *c.TenantID
}
