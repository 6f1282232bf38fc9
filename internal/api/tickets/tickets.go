// Package tickets implements the ticket, comment, and attachment HTTP handlers.
//
// Every handler here runs inside the Secure wrapper: it receives the caller's
// resolved security context and a database transaction already bound to the
// caller's tenant scope. Handlers never filter by tenant themselves; row
// visibility is the database's job. What handlers do enforce is role and
// permission policy, which is orthogonal to tenant isolation.
package tickets

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
	"github.com/helpdesk-platform/helpdesk/internal/storage"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Handlers bundles the ticket-related handlers and their dependencies.
type Handlers struct {
	tickets     *repositories.TicketRepository
	comments    *repositories.CommentRepository
	attachments *repositories.AttachmentRepository
	storage     storage.Storage
	maxUpload   int64
}

// NewHandlers creates the ticket handler set.
func NewHandlers(store storage.Storage, maxUploadBytes int64) *Handlers {
	return &Handlers{
		tickets:     repositories.NewTicketRepository(),
		comments:    repositories.NewCommentRepository(),
		attachments: repositories.NewAttachmentRepository(),
		storage:     store,
		maxUpload:   maxUploadBytes,
	}
}

// callerRole returns the authenticated caller's role. The Secure wrapper
// guarantees a session exists by the time a handler runs.
func callerRole(c *gin.Context) models.Role {
	sess := middleware.GetSession(c)
	if sess == nil {
		return ""
	}
	return sess.User.Role
}

func callerPermissions(c *gin.Context) map[string]bool {
	sess := middleware.GetSession(c)
	if sess == nil {
		return nil
	}
	return sess.User.Permissions
}

// pagination parses limit/offset query parameters with bounds applied.
func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

type createTicketRequest struct {
	Subject     string  `json:"subject" binding:"required,max=500"`
	Description string  `json:"description" binding:"required"`
	CategoryID  *string `json:"category_id"`
	Priority    string  `json:"priority"`
}

// Create opens a new ticket in the caller's tenant. Global admins have no
// tenant of their own and therefore cannot raise tickets.
func (h *Handlers) Create(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if sctx.IsAdmin {
		return 0, nil, fmt.Errorf("%w: global admins cannot raise tickets", security.ErrForbidden)
	}

	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	priority := models.PriorityNormal
	if req.Priority != "" {
		priority = models.TicketPriority(req.Priority)
		if !priority.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return http.StatusBadRequest, nil, nil
		}
	}

	ticket := &models.Ticket{
		TenantID:    sctx.TenantScope(),
		CategoryID:  req.CategoryID,
		RequesterID: *sctx.UserID,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      models.TicketOpen,
		Priority:    priority,
	}
	if err := h.tickets.Create(c.Request.Context(), tx, ticket); err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, ticket, nil
}

// Get returns a single ticket. End users may only fetch tickets they raised;
// row-level security already restricts visibility to the caller's tenant.
func (h *Handlers) Get(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	if callerRole(c) == models.RoleUser && ticket.RequesterID != *sctx.UserID {
		// Report NotFound rather than Forbidden so existence of other users'
		// tickets is not disclosed.
		return 0, nil, security.ErrNotFound
	}

	return http.StatusOK, ticket, nil
}

// List returns tickets matching the query filters, with pagination. End users
// are restricted to tickets they raised.
func (h *Handlers) List(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	var filters repositories.TicketFilters

	if v := c.Query("status"); v != "" {
		status := models.TicketStatus(v)
		if !status.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return http.StatusBadRequest, nil, nil
		}
		filters.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TicketPriority(v)
		if !priority.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return http.StatusBadRequest, nil, nil
		}
		filters.Priority = &priority
	}
	if v := c.Query("category_id"); v != "" {
		filters.CategoryID = &v
	}
	if v := c.Query("assignee_id"); v != "" {
		filters.AssigneeID = &v
	}
	if callerRole(c) == models.RoleUser {
		filters.RequesterID = sctx.UserID
	}

	limit, offset := pagination(c)
	tickets, total, err := h.tickets.List(c.Request.Context(), tx, filters, limit, offset)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, gin.H{
		"tickets": tickets,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}, nil
}

type updateTicketRequest struct {
	Subject     *string `json:"subject"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	AssigneeID  *string `json:"assignee_id"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// Update applies partial changes to a ticket. Agents need tickets:assign to
// change the assignee and tickets:close to resolve or close; requesters may
// edit the subject and description of their own open tickets.
func (h *Handlers) Update(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	ticket, err := h.tickets.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	role := callerRole(c)
	perms := callerPermissions(c)

	if role == models.RoleUser {
		if ticket.RequesterID != *sctx.UserID {
			return 0, nil, security.ErrNotFound
		}
		// Requesters may only edit their own ticket's text fields.
		if req.AssigneeID != nil || req.Status != nil || req.Priority != nil || req.CategoryID != nil {
			return 0, nil, fmt.Errorf("%w: requesters may only edit subject and description", security.ErrForbidden)
		}
	}

	if req.AssigneeID != nil {
		if err := security.RequirePermission(role, string(auth.PermTicketsAssign), perms); err != nil {
			return 0, nil, err
		}
		ticket.AssigneeID = req.AssigneeID
	}
	if req.Status != nil {
		status := models.TicketStatus(*req.Status)
		if !status.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return http.StatusBadRequest, nil, nil
		}
		if status == models.TicketResolved || status == models.TicketClosed {
			if err := security.RequirePermission(role, string(auth.PermTicketsClose), perms); err != nil {
				return 0, nil, err
			}
		}
		ticket.Status = status
	}
	if req.Priority != nil {
		priority := models.TicketPriority(*req.Priority)
		if !priority.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return http.StatusBadRequest, nil, nil
		}
		ticket.Priority = priority
	}
	if req.CategoryID != nil {
		ticket.CategoryID = req.CategoryID
	}
	if req.Subject != nil {
		ticket.Subject = *req.Subject
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}

	if err := h.tickets.Update(c.Request.Context(), tx, ticket); err != nil {
		return 0, nil, err
	}

	return http.StatusOK, ticket, nil
}

// Delete removes a ticket and, via cascades, its comments and attachments.
// Requires the tickets:delete permission.
func (h *Handlers) Delete(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := security.RequirePermission(callerRole(c), string(auth.PermTicketsDelete), callerPermissions(c)); err != nil {
		return 0, nil, err
	}

	if err := h.tickets.Delete(c.Request.Context(), tx, c.Param("id")); err != nil {
		return 0, nil, err
	}

	return http.StatusNoContent, nil, nil
}
