package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// CategoryRepository handles ticket category operations on a bound transaction.
type CategoryRepository struct{}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

// Create inserts a new category. Duplicate names within a tenant surface as
// Conflict via the unique constraint.
func (r *CategoryRepository) Create(ctx context.Context, tx *sqlx.Tx, c *models.Category) error {
	c.ID = uuid.New().String()
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, tenant_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.TenantID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	return Translate(err)
}

// GetByID retrieves a single category visible under the current binding.
func (r *CategoryRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Category, error) {
	var c models.Category
	err := tx.GetContext(ctx, &c, `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM categories WHERE id = $1
	`, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &c, nil
}

// List retrieves all categories visible under the current binding.
func (r *CategoryRepository) List(ctx context.Context, tx *sqlx.Tx) ([]*models.Category, error) {
	categories := make([]*models.Category, 0)
	err := tx.SelectContext(ctx, &categories, `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, Translate(err)
	}
	return categories, nil
}

// Update persists category name and description changes.
func (r *CategoryRepository) Update(ctx context.Context, tx *sqlx.Tx, c *models.Category) error {
	c.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE categories SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}

// Delete removes a category. Tickets referencing it keep a NULL category via
// the foreign key's ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
