package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// APITokenRepository handles API token database operations. Tokens are looked
// up at the authentication boundary, before any binding, so it runs on the
// root pool.
type APITokenRepository struct {
	db *sqlx.DB
}

// NewAPITokenRepository creates a new APITokenRepository.
func NewAPITokenRepository(db *sqlx.DB) *APITokenRepository {
	return &APITokenRepository{db: db}
}

// CreateToken stores a new token record. TokenHash must already be a bcrypt
// hash; the plaintext is never persisted.
func (r *APITokenRepository) CreateToken(ctx context.Context, t *models.APIToken) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, name, token_prefix, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.UserID, t.Name, t.TokenPrefix, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return Translate(err)
}

// GetTokensByPrefix retrieves candidate tokens sharing a plaintext prefix.
// The prefix narrows the bcrypt comparisons the caller has to make; it is not
// unique on its own.
func (r *APITokenRepository) GetTokensByPrefix(ctx context.Context, prefix string) ([]*models.APIToken, error) {
	tokens := make([]*models.APIToken, 0)
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT id, user_id, name, token_prefix, token_hash, expires_at, last_used_at, created_at
		FROM api_tokens
		WHERE token_prefix = $1
	`, prefix)
	if err != nil {
		return nil, Translate(err)
	}
	return tokens, nil
}

// ListByUser retrieves all tokens belonging to a user.
func (r *APITokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.APIToken, error) {
	tokens := make([]*models.APIToken, 0)
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT id, user_id, name, token_prefix, token_hash, expires_at, last_used_at, created_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, Translate(err)
	}
	return tokens, nil
}

// UpdateLastUsed records token usage. Called asynchronously off the request
// path, so failures are the caller's to log and ignore.
func (r *APITokenRepository) UpdateLastUsed(ctx context.Context, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, tokenID, time.Now())
	return Translate(err)
}

// DeleteToken revokes a token.
func (r *APITokenRepository) DeleteToken(ctx context.Context, tokenID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`, tokenID, userID)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
