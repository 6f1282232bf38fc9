package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// AttachmentRepository handles attachment metadata on a bound transaction.
// The file bytes themselves live in the storage backend under StorageKey.
type AttachmentRepository struct{}

// NewAttachmentRepository creates a new AttachmentRepository.
func NewAttachmentRepository() *AttachmentRepository {
	return &AttachmentRepository{}
}

// Create records attachment metadata for an uploaded file.
func (r *AttachmentRepository) Create(ctx context.Context, tx *sqlx.Tx, a *models.Attachment) error {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO attachments (id, tenant_id, ticket_id, uploader_id, file_name, size_bytes, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.TenantID, a.TicketID, a.UploaderID, a.FileName, a.SizeBytes, a.StorageKey, a.CreatedAt)
	return Translate(err)
}

// GetByID retrieves attachment metadata visible under the current binding.
func (r *AttachmentRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Attachment, error) {
	var a models.Attachment
	err := tx.GetContext(ctx, &a, `
		SELECT id, tenant_id, ticket_id, uploader_id, file_name, size_bytes, storage_key, created_at
		FROM attachments WHERE id = $1
	`, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &a, nil
}

// ListByTicket retrieves all attachments recorded against a ticket.
func (r *AttachmentRepository) ListByTicket(ctx context.Context, tx *sqlx.Tx, ticketID string) ([]*models.Attachment, error) {
	attachments := make([]*models.Attachment, 0)
	err := tx.SelectContext(ctx, &attachments, `
		SELECT id, tenant_id, ticket_id, uploader_id, file_name, size_bytes, storage_key, created_at
		FROM attachments
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, Translate(err)
	}
	return attachments, nil
}

// Delete removes attachment metadata. The caller is responsible for deleting
// the stored object afterwards.
func (r *AttachmentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return Translate(err)
	}
	return requireRowAffected(res)
}
