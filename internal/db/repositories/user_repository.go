// Package repositories implements the data access layer for the helpdesk.
// Each repository type encapsulates all database queries for a domain entity;
// handlers never issue SQL directly.
//
// Two kinds of repository live here. Tenant-scoped repositories (tickets,
// comments, attachments, categories, audit reads) take the *sqlx.Tx the
// security binder opened and rely on row-level security for visibility.
// Boundary repositories (users, tenants, api_tokens, audit writes) hold the
// root *sqlx.DB because they run before a binding exists or outside the
// request transaction; those tables are guarded in application code instead.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// UserRepository handles user database operations. It runs on the root
// connection pool: the authentication boundary has to load users before any
// security context exists.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser creates a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, name, role, permissions, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.TenantID, user.Email, user.Name, user.Role, user.Permissions, user.Active, user.CreatedAt, user.UpdatedAt)
	return Translate(err)
}

// GetUserByID retrieves a user by id.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, tenant_id, email, name, role, permissions, active, created_at, updated_at
		FROM users WHERE id = $1
	`, userID)
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email within a tenant. A nil tenantID
// looks up global admins.
func (r *UserRepository) GetUserByEmail(ctx context.Context, tenantID *string, email string) (*models.User, error) {
	var user models.User
	var err error
	if tenantID == nil {
		err = r.db.GetContext(ctx, &user, `
			SELECT id, tenant_id, email, name, role, permissions, active, created_at, updated_at
			FROM users WHERE tenant_id IS NULL AND email = $1
		`, email)
	} else {
		err = r.db.GetContext(ctx, &user, `
			SELECT id, tenant_id, email, name, role, permissions, active, created_at, updated_at
			FROM users WHERE tenant_id = $1 AND email = $2
		`, *tenantID, email)
	}
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// ListByTenant retrieves all users belonging to a tenant.
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	users := make([]*models.User, 0)
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, tenant_id, email, name, role, permissions, active, created_at, updated_at
		FROM users
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, Translate(err)
	}
	return users, nil
}

// UpdateUser persists mutable user fields.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, role = $3, permissions = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Name, user.Role, user.Permissions, user.Active, user.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
