// audit.go implements audit log read access. Reads run on the tenant-bound
// transaction, so a tenant admin or agent sees only their tenant's history
// while a global admin sees everything. Writes never go through here; the
// async audit logger owns those.
package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

const (
	auditDefaultPageSize = 50
	auditMaxPageSize     = 200
)

// AuditHandlers implements audit log queries.
type AuditHandlers struct {
	audit *repositories.AuditRepository
}

// NewAuditHandlers creates the audit handler set.
func NewAuditHandlers(repo *repositories.AuditRepository) *AuditHandlers {
	return &AuditHandlers{audit: repo}
}

// List returns audit log entries matching the query filters. Admins and tenant
// admins always pass; agents need the audit:read permission; end users are
// denied.
func (h *AuditHandlers) List(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	sess := middleware.GetSession(c)
	var role models.Role
	var perms map[string]bool
	if sess != nil {
		role = sess.User.Role
		perms = sess.User.Permissions
	}
	if role == models.RoleAgent {
		if err := security.RequirePermission(role, string(auth.PermAuditRead), perms); err != nil {
			return 0, nil, err
		}
	} else if err := security.RequireRole(role, models.RoleAdmin, models.RoleTenantAdmin); err != nil {
		return 0, nil, fmt.Errorf("audit access: %w", err)
	}

	var filters repositories.AuditFilters
	if v := c.Query("user_id"); v != "" {
		filters.UserID = &v
	}
	if v := c.Query("action"); v != "" {
		filters.Action = &v
	}
	if v := c.Query("resource_type"); v != "" {
		filters.ResourceType = &v
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "start_date must be RFC3339"})
			return http.StatusBadRequest, nil, nil
		}
		filters.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "end_date must be RFC3339"})
			return http.StatusBadRequest, nil, nil
		}
		filters.EndDate = &t
	}

	limit := auditDefaultPageSize
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "")); err == nil && v > 0 {
		limit = min(v, auditMaxPageSize)
	}
	offset := 0
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "")); err == nil && v >= 0 {
		offset = v
	}

	logs, total, err := h.audit.ListAuditLogs(c.Request.Context(), tx, filters, limit, offset)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	}, nil
}
