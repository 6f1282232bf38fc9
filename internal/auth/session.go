// Package auth - session.go defines the authenticated Session object produced by
// the authentication boundary (JWT or API token validation plus a user lookup).
// Session/token issuance itself is external; this package only verifies tokens
// and materializes the session the security layer consumes.
package auth

import "github.com/helpdesk-platform/helpdesk/internal/db/models"

// SessionUser is the identity portion of a session.
type SessionUser struct {
	ID string
	// Role determines role-based checks; it is deliberately not part of the
	// SecurityContext so that role checks and tenant isolation stay composable.
	Role Role
	// TenantID is nil only for global admins.
	TenantID *string
	// Permissions is the fine-grained permission map for agents; nil for roles
	// that do not carry one.
	Permissions map[string]bool
}

// Role aliases the model role so callers of this package do not need to import
// the models package for the common case.
type Role = models.Role

// Session represents an already-authenticated caller.
type Session struct {
	User SessionUser
	// AuthMethod records how the session was established ("jwt" or "api_token").
	AuthMethod string
}

// NewSessionFromUser builds a Session from a loaded user row.
func NewSessionFromUser(u *models.User, authMethod string) *Session {
	return &Session{
		User: SessionUser{
			ID:          u.ID,
			Role:        u.Role,
			TenantID:    u.TenantID,
			Permissions: u.Permissions,
		},
		AuthMethod: authMethod,
	}
}
