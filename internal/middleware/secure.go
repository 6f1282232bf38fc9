// secure.go implements the secured handler wrapper: the single composition
// point that takes a request from authenticated session to tenant-bound
// transaction and back to a classified HTTP response.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// SecurityContextKey is the gin.Context key holding the resolved
// security.Context for middleware that runs after the handler (audit).
const SecurityContextKey = "security_context"

// SecureHandler is a request handler that runs inside a bound transaction.
// It returns the response status and body; both are withheld until the
// transaction commits, so a caller never sees a success status for work that
// was rolled back.
type SecureHandler func(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error)

// Secure wraps a handler with the full security pipeline:
//
//  1. Resolve the session into a security context; no session means 401
//     before any database work.
//  2. Bind the context onto a pinned connection's transaction.
//  3. Run the handler inside that transaction.
//  4. Commit, then write the handler's response; classify any error into the
//     closed status taxonomy instead of leaking details.
//
// A binding failure is fatal for the request. The handler is never invoked on
// an unbound connection.
func Secure(binder *security.Binder, handler SecureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sctx, err := security.Resolve(GetSession(c))
		if err != nil {
			writeClassifiedError(c, err)
			return
		}
		c.Set(SecurityContextKey, sctx)

		var status int
		var body interface{}

		err = binder.Bind(c.Request.Context(), sctx, func(tx *sqlx.Tx) error {
			var herr error
			status, body, herr = handler(c, sctx, tx)
			return herr
		})
		if err != nil {
			writeClassifiedError(c, err)
			return
		}

		if body == nil {
			// A handler that streamed its own response (attachment download)
			// has already written; don't touch the status again.
			if !c.Writer.Written() {
				c.Status(status)
			}
			return
		}
		c.JSON(status, body)
	}
}

// GetSecurityContext returns the security context the Secure wrapper resolved
// for this request. The second return is false before resolution or on
// unauthenticated requests.
func GetSecurityContext(c *gin.Context) (security.Context, bool) {
	v, exists := c.Get(SecurityContextKey)
	if !exists {
		return security.Context{}, false
	}
	sctx, ok := v.(security.Context)
	return sctx, ok
}

// writeClassifiedError maps a classified error onto a fixed status and a
// generic body. Internal details never reach the response; they are available
// in server logs only.
func writeClassifiedError(c *gin.Context, err error) {
	switch security.ClassifyError(err) {
	case security.KindUnauthenticated:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case security.KindForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case security.KindNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case security.KindConflict:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Conflict"})
	default:
		// KindContextBinding and KindInternal are both opaque 500s; the
		// detail goes to the server log only.
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(RequestIDKey),
			"error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
