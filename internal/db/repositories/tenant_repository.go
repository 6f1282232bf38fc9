package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// TenantRepository handles tenant database operations. Tenants are not under
// row-level security; every method here is reachable only from global admin
// handlers, which the access guards enforce before the query runs.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// CreateTenant creates a new tenant.
func (r *TenantRepository) CreateTenant(ctx context.Context, t *models.Tenant) error {
	t.ID = uuid.New().String()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, domain, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Name, t.Domain, t.Active, t.CreatedAt, t.UpdatedAt)
	return Translate(err)
}

// GetTenantByID retrieves a tenant by id.
func (r *TenantRepository) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.GetContext(ctx, &t, `
		SELECT id, name, domain, active, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &t, nil
}

// ListTenants retrieves all tenants.
func (r *TenantRepository) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants := make([]*models.Tenant, 0)
	err := r.db.SelectContext(ctx, &tenants, `
		SELECT id, name, domain, active, created_at, updated_at
		FROM tenants
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, Translate(err)
	}
	return tenants, nil
}

// UpdateTenant persists tenant name, domain, and active flag.
func (r *TenantRepository) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	t.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET name = $2, domain = $3, active = $4, updated_at = $5 WHERE id = $1
	`, t.ID, t.Name, t.Domain, t.Active, t.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}

// DeleteTenant removes a tenant and, via cascades, everything it owns.
func (r *TenantRepository) DeleteTenant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
