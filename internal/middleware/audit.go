// audit.go provides Gin middleware that records authenticated write
// operations through the asynchronous audit logger.
package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/helpdesk-platform/helpdesk/internal/audit"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

// AuditConfig controls which requests the audit middleware records.
type AuditConfig struct {
	// LogReadOperations records GET requests in addition to writes.
	LogReadOperations bool `mapstructure:"log_read_operations"`
	// LogFailedRequests records requests that ended in a 4xx/5xx status.
	LogFailedRequests bool `mapstructure:"log_failed_requests"`
}

// AuditMiddleware records requests after the handler completes, so the entry
// reflects the real outcome. By default only successful write operations are
// recorded; cfg widens that to reads and failures.
//
// Tenant attribution comes from the resolved security context: a global admin
// acting on a tenant's data produces an entry attributed to the affected
// tenant, visible to that tenant's administrators. Requests that never
// resolved a context (unauthenticated, or handled outside the Secure wrapper)
// are not recorded.
func AuditMiddleware(logger *audit.Logger, cfg AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		isRead := c.Request.Method == "GET" || c.Request.Method == "HEAD"
		isFailed := c.Writer.Status() >= 400

		if isRead && !cfg.LogReadOperations {
			return
		}
		if isFailed && !cfg.LogFailedRequests {
			return
		}

		sctx, ok := GetSecurityContext(c)
		if !ok {
			return
		}

		entry := &models.AuditLog{
			TenantID: sctx.TenantScope(),
			UserID:   sctx.UserID,
			Action:   auditAction(c),
			Metadata: map[string]interface{}{
				"status_code": c.Writer.Status(),
			},
		}

		// Admin actions bind no tenant; attribute them to the tenant named in
		// the route when there is one. Purely global actions (tenant listing,
		// tenant creation) have no owning tenant row to attach to.
		if entry.TenantID == "" {
			switch {
			case c.Param("tenant_id") != "":
				entry.TenantID = c.Param("tenant_id")
			case strings.Contains(c.FullPath(), "/tenants/") && c.Param("id") != "":
				entry.TenantID = c.Param("id")
			default:
				return
			}
		}

		ip := c.ClientIP()
		if ip != "" {
			entry.IPAddress = &ip
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}

		if sess := GetSession(c); sess != nil {
			entry.Metadata["auth_method"] = sess.AuthMethod
		}

		if rt := resourceTypeFromPath(c.FullPath()); rt != "" {
			entry.ResourceType = &rt
			if rid := c.Param("id"); rid != "" {
				entry.ResourceID = &rid
			}
		}

		logger.Record(entry)
	}
}

// auditAction derives a stable action name from the route, e.g.
// "POST /api/v1/tickets" rather than the raw URL with ids in it.
func auditAction(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return fmt.Sprintf("%s %s", c.Request.Method, path)
}

func resourceTypeFromPath(path string) string {
	switch {
	case strings.Contains(path, "/tickets") && strings.Contains(path, "/comments"):
		return "comment"
	case strings.Contains(path, "/tickets") && strings.Contains(path, "/attachments"):
		return "attachment"
	case strings.Contains(path, "/tickets"):
		return "ticket"
	case strings.Contains(path, "/categories"):
		return "category"
	case strings.Contains(path, "/tenants"):
		return "tenant"
	case strings.Contains(path, "/users"):
		return "user"
	case strings.Contains(path, "/tokens"):
		return "api_token"
	}
	return ""
}
