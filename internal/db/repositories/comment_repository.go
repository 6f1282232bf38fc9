package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// CommentRepository handles ticket comment operations on a bound transaction.
type CommentRepository struct{}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository() *CommentRepository {
	return &CommentRepository{}
}

// Create inserts a comment under an existing ticket.
func (r *CommentRepository) Create(ctx context.Context, tx *sqlx.Tx, c *models.Comment) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO comments (id, tenant_id, ticket_id, author_id, body, internal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.TenantID, c.TicketID, c.AuthorID, c.Body, c.Internal, c.CreatedAt)
	return Translate(err)
}

// ListByTicket retrieves comments for a ticket in chronological order.
// includeInternal controls whether agent-only notes are returned.
func (r *CommentRepository) ListByTicket(ctx context.Context, tx *sqlx.Tx, ticketID string, includeInternal bool) ([]*models.Comment, error) {
	query := `
		SELECT id, tenant_id, ticket_id, author_id, body, internal, created_at
		FROM comments
		WHERE ticket_id = $1
	`
	if !includeInternal {
		query += ` AND internal = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	comments := make([]*models.Comment, 0)
	if err := tx.SelectContext(ctx, &comments, query, ticketID); err != nil {
		return nil, Translate(err)
	}
	return comments, nil
}

// Delete removes a single comment.
func (r *CommentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
