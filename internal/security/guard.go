// guard.go implements the access guard: pure, synchronous predicates over the
// caller's role, permission map, and security Context. None of them touch
// persistence, so they are unit-testable without a database.
//
// The role is passed alongside the Context rather than carried inside it; see
// the Context doc comment for why the isolation primitive omits it.
package security

import (
	"fmt"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/telemetry"
)

// RequireRole fails with ErrForbidden unless role is in allowed.
func RequireRole(role models.Role, allowed ...models.Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	telemetry.AccessDeniedTotal.WithLabelValues("role").Inc()
	return fmt.Errorf("%w: role %s not permitted", ErrForbidden, role)
}

// RequirePermission enforces a fine-grained permission check.
//
// Global admins and tenant admins bypass fine-grained checks unconditionally.
// Agents are allowed only when the named permission is explicitly true in their
// permission map. Every other role is denied unconditionally.
func RequirePermission(role models.Role, permission string, perms map[string]bool) error {
	switch role {
	case models.RoleAdmin, models.RoleTenantAdmin:
		return nil
	case models.RoleAgent:
		if perms[permission] {
			return nil
		}
		telemetry.AccessDeniedTotal.WithLabelValues("permission").Inc()
		return fmt.Errorf("%w: agent lacks permission %s", ErrForbidden, permission)
	default:
		telemetry.AccessDeniedTotal.WithLabelValues("permission").Inc()
		return fmt.Errorf("%w: role %s has no fine-grained permissions", ErrForbidden, role)
	}
}

// CheckTenantAccess verifies the caller may touch a resource identified by an
// explicit tenant id (e.g. a path parameter). A global admin passes
// unconditionally; any other caller passes only when the target equals their
// own tenant. This is defense in depth on top of the storage engine's row
// filtering, for handlers that take tenant ids from the request.
func CheckTenantAccess(ctx Context, targetTenantID string) error {
	if ctx.IsAdmin {
		return nil
	}
	if ctx.TenantID != nil && *ctx.TenantID == targetTenantID {
		return nil
	}
	telemetry.AccessDeniedTotal.WithLabelValues("tenant").Inc()
	return fmt.Errorf("%w: tenant access denied", ErrForbidden)
}
