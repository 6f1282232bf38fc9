// resolver.go derives a security Context from an already-authenticated session.
// Pure derivation: no side effects and no database access. A missing session
// fails closed with ErrUnauthenticated.
package security

import (
	"fmt"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// Resolve derives the request's security Context from sess.
//
// The tenant id is taken from the session user (absent for a global admin), the
// admin flag is true iff the role is ADMIN, and the user id is the acting
// principal. A non-admin session without a tenant is rejected here rather than
// left for the binder, so the invalid state never propagates.
func Resolve(sess *auth.Session) (Context, error) {
	if sess == nil {
		return Context{}, ErrUnauthenticated
	}
	if sess.User.ID == "" {
		return Context{}, fmt.Errorf("%w: session has no user", ErrUnauthenticated)
	}

	userID := sess.User.ID
	ctx := Context{
		TenantID: sess.User.TenantID,
		IsAdmin:  sess.User.Role == models.RoleAdmin,
		UserID:   &userID,
	}

	if err := ctx.Validate(); err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return ctx, nil
}
