// Package models - api_token.go defines the APIToken model for programmatic
// access. Only the bcrypt hash of a token is stored; the plaintext prefix allows
// an indexed lookup before the expensive hash comparison.
package models

import "time"

// APIToken represents a long-lived API token tied to a user account.
type APIToken struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Name        string     `db:"name"`
	TokenPrefix string     `db:"token_prefix"`
	TokenHash   string     `db:"token_hash"`
	ExpiresAt   *time.Time `db:"expires_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
