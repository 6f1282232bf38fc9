// ticket_repository.go implements TicketRepository, the tenant-unaware query
// layer for tickets. Every method runs against the transaction the security
// binder opened, so row visibility is enforced by the database's row-level
// security policies. The repository itself carries no isolation logic and
// never filters by tenant explicitly.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// TicketRepository handles ticket database operations on a bound transaction.
type TicketRepository struct{}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{}
}

// TicketFilters contains optional filters for listing tickets. RequesterID is
// set by handlers when the caller may only see tickets they raised.
type TicketFilters struct {
	Status      *models.TicketStatus
	Priority    *models.TicketPriority
	CategoryID  *string
	AssigneeID  *string
	RequesterID *string
}

// Create inserts a new ticket. The tenant id comes from the caller's security
// context; the RLS WITH CHECK clause rejects any mismatch with the binding.
func (r *TicketRepository) Create(ctx context.Context, tx *sqlx.Tx, t *models.Ticket) error {
	t.ID = uuid.New().String()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (id, tenant_id, category_id, requester_id, assignee_id, subject, description, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.TenantID, t.CategoryID, t.RequesterID, t.AssigneeID, t.Subject, t.Description, t.Status, t.Priority, t.CreatedAt, t.UpdatedAt)
	return Translate(err)
}

// GetByID retrieves a single ticket visible under the current binding.
func (r *TicketRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := tx.GetContext(ctx, &t, `
		SELECT id, tenant_id, category_id, requester_id, assignee_id, subject, description, status, priority, created_at, updated_at
		FROM tickets WHERE id = $1
	`, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &t, nil
}

// List retrieves tickets with optional filters and pagination, plus the total
// count for the same filter set.
func (r *TicketRepository) List(ctx context.Context, tx *sqlx.Tx, filters TicketFilters, limit, offset int) ([]*models.Ticket, int, error) {
	countQuery := `SELECT COUNT(*) FROM tickets WHERE 1=1`
	query := `
		SELECT id, tenant_id, category_id, requester_id, assignee_id, subject, description, status, priority, created_at, updated_at
		FROM tickets
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Status != nil {
		clause := fmt.Sprintf(` AND status = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Status)
		paramIndex++
	}
	if filters.Priority != nil {
		clause := fmt.Sprintf(` AND priority = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Priority)
		paramIndex++
	}
	if filters.CategoryID != nil {
		clause := fmt.Sprintf(` AND category_id = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.CategoryID)
		paramIndex++
	}
	if filters.AssigneeID != nil {
		clause := fmt.Sprintf(` AND assignee_id = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.AssigneeID)
		paramIndex++
	}
	if filters.RequesterID != nil {
		clause := fmt.Sprintf(` AND requester_id = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.RequesterID)
		paramIndex++
	}

	var total int
	if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, Translate(err)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	tickets := make([]*models.Ticket, 0)
	if err := tx.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, Translate(err)
	}

	return tickets, total, nil
}

// Update persists mutable ticket fields. Updating a ticket outside the bound
// tenant affects zero rows and reports NotFound.
func (r *TicketRepository) Update(ctx context.Context, tx *sqlx.Tx, t *models.Ticket) error {
	t.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET category_id = $2, assignee_id = $3, subject = $4, description = $5, status = $6, priority = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.CategoryID, t.AssigneeID, t.Subject, t.Description, t.Status, t.Priority, t.UpdatedAt)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}

// Delete removes a ticket (and, via cascades, its comments and attachments).
func (r *TicketRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
