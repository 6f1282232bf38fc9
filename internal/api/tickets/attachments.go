// attachments.go implements the attachment handlers nested under a ticket.
// Files live in the configured storage backend; the database row holds only
// metadata plus the storage key. Downloads are streamed through the API so the
// access decision (tenant visibility via RLS, ownership for end users) is made
// on every fetch.
package tickets

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// UploadAttachment stores an uploaded file and records its metadata. The file
// is written to the storage backend first; if the metadata insert then fails,
// the stored file is removed best-effort before the error propagates.
func (h *Handlers) UploadAttachment(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	if callerRole(c) == models.RoleUser && ticket.RequesterID != *sctx.UserID {
		return 0, nil, security.ErrNotFound
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return http.StatusBadRequest, nil, nil
	}
	if fileHeader.Size > h.maxUpload {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds the %d byte limit", h.maxUpload),
		})
		return http.StatusRequestEntityTooLarge, nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Base() strips any client-supplied directory components.
	fileName := filepath.Base(fileHeader.Filename)
	key := path.Join(ticket.TenantID, ticket.ID, uuid.New().String()+"-"+fileName)

	result, err := h.storage.Upload(c.Request.Context(), key, file, fileHeader.Size)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &models.Attachment{
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		UploaderID: *sctx.UserID,
		FileName:   fileName,
		SizeBytes:  result.Size,
		StorageKey: result.Key,
	}
	if err := h.attachments.Create(c.Request.Context(), tx, attachment); err != nil {
		if delErr := h.storage.Delete(c.Request.Context(), key); delErr != nil {
			slog.Warn("failed to clean up stored file after insert failure",
				"key", key, "error", delErr)
		}
		return 0, nil, err
	}

	return http.StatusCreated, attachment, nil
}

// ListAttachments returns a ticket's attachment metadata.
func (h *Handlers) ListAttachments(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	if callerRole(c) == models.RoleUser && ticket.RequesterID != *sctx.UserID {
		return 0, nil, security.ErrNotFound
	}

	attachments, err := h.attachments.ListByTicket(c.Request.Context(), tx, ticket.ID)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, gin.H{"attachments": attachments}, nil
}

// DownloadAttachment streams an attachment's content. The metadata row is
// fetched under the tenant binding first, so a cross-tenant key can never be
// reached even if guessed.
func (h *Handlers) DownloadAttachment(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	attachment, err := h.attachments.GetByID(c.Request.Context(), tx, c.Param("attachment_id"))
	if err != nil {
		return 0, nil, err
	}
	if attachment.TicketID != c.Param("id") {
		return 0, nil, security.ErrNotFound
	}

	if callerRole(c) == models.RoleUser {
		ticket, err := h.tickets.GetByID(c.Request.Context(), tx, attachment.TicketID)
		if err != nil {
			return 0, nil, err
		}
		if ticket.RequesterID != *sctx.UserID {
			return 0, nil, security.ErrNotFound
		}
	}

	reader, err := h.storage.Download(c.Request.Context(), attachment.StorageKey)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, attachment.SizeBytes, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", attachment.FileName),
	})
	return http.StatusOK, nil, nil
}

// DeleteAttachment removes an attachment. Allowed for the uploader, tenant
// admins, and global admins. The storage object is removed best-effort after
// the row delete; an orphaned file is preferable to a dangling row.
func (h *Handlers) DeleteAttachment(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	attachment, err := h.attachments.GetByID(c.Request.Context(), tx, c.Param("attachment_id"))
	if err != nil {
		return 0, nil, err
	}
	if attachment.TicketID != c.Param("id") {
		return 0, nil, security.ErrNotFound
	}

	role := callerRole(c)
	if attachment.UploaderID != *sctx.UserID {
		if err := security.RequireRole(role, models.RoleAdmin, models.RoleTenantAdmin); err != nil {
			return 0, nil, fmt.Errorf("attachment delete: %w", err)
		}
	}

	if err := h.attachments.Delete(c.Request.Context(), tx, attachment.ID); err != nil {
		return 0, nil, err
	}

	if err := h.storage.Delete(c.Request.Context(), attachment.StorageKey); err != nil {
		slog.Warn("failed to delete stored attachment file",
			"key", attachment.StorageKey, "error", err)
	}

	return http.StatusNoContent, nil, nil
}
