// comments.go implements the comment handlers nested under a ticket. Internal
// comments are agent-facing notes; posting one requires the comments:internal
// permission and they are hidden from end users on listing.
package tickets

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

type createCommentRequest struct {
	Body     string `json:"body" binding:"required"`
	Internal bool   `json:"internal"`
}

// CreateComment adds a comment to a ticket. The ticket is fetched first so a
// comment can never be attached to a ticket outside the caller's visibility.
func (h *Handlers) CreateComment(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	role := callerRole(c)
	if role == models.RoleUser && ticket.RequesterID != *sctx.UserID {
		return 0, nil, security.ErrNotFound
	}

	if req.Internal {
		if err := security.RequirePermission(role, string(auth.PermCommentsInternal), callerPermissions(c)); err != nil {
			return 0, nil, err
		}
	}

	comment := &models.Comment{
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		AuthorID: *sctx.UserID,
		Body:     req.Body,
		Internal: req.Internal,
	}
	if err := h.comments.Create(c.Request.Context(), tx, comment); err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, comment, nil
}

// ListComments returns a ticket's comments in chronological order. End users
// never see internal comments.
func (h *Handlers) ListComments(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	role := callerRole(c)
	if role == models.RoleUser && ticket.RequesterID != *sctx.UserID {
		return 0, nil, security.ErrNotFound
	}

	includeInternal := role != models.RoleUser
	comments, err := h.comments.ListByTicket(c.Request.Context(), tx, ticket.ID, includeInternal)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, gin.H{"comments": comments}, nil
}

// DeleteComment removes a comment. Restricted to tenant admins and global
// admins; comment history is part of the audit trail for everyone else.
func (h *Handlers) DeleteComment(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	role := callerRole(c)
	if err := security.RequireRole(role, models.RoleAdmin, models.RoleTenantAdmin); err != nil {
		return 0, nil, fmt.Errorf("comment delete: %w", err)
	}

	if err := h.comments.Delete(c.Request.Context(), tx, c.Param("comment_id")); err != nil {
		return 0, nil, err
	}

	return http.StatusNoContent, nil, nil
}
