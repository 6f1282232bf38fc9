// Package middleware provides Gin HTTP middleware for authentication, tenant
// security binding, rate limiting, security headers, and audit logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Secure(handler) → Audit
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB
// work. Auth establishes the session; the Secure wrapper resolves it into a
// security context and runs the handler inside a bound transaction. Audit runs
// after the handler so the recorded status reflects the real outcome.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/safego"
)

const (
	// SessionKey is the gin.Context key holding the authenticated *auth.Session.
	SessionKey = "session"
)

// GetSession returns the authenticated session established by AuthMiddleware,
// or nil when the request carries none.
func GetSession(c *gin.Context) *auth.Session {
	v, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	sess, ok := v.(*auth.Session)
	if !ok {
		return nil
	}
	return sess
}

// AuthMiddleware validates authentication (JWT or API token) and establishes
// the session consumed by the Secure wrapper. It deliberately does not touch
// tenant-scoped tables: users and api_tokens sit outside row-level security
// because this runs before any binding exists.
func AuthMiddleware(userRepo *repositories.UserRepository, tokenRepo *repositories.APITokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		// JWT is attempted first because it is stateless: a cryptographic
		// check plus one user load. API token validation always costs a
		// prefix query plus bcrypt comparisons.
		if claims, err := auth.ValidateJWT(token); err == nil {
			user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
			if err != nil || user == nil || !user.Active {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid credentials",
				})
				return
			}

			c.Set(SessionKey, auth.NewSessionFromUser(user, "jwt"))
			c.Next()
			return
		}

		// API token path. Only the bcrypt hash is stored; the plaintext
		// prefix narrows the candidate set so we run bcrypt on a handful of
		// rows instead of the whole table.
		apiToken, err := authenticateAPIToken(c.Request.Context(), token, tokenRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		if apiToken != nil {
			if apiToken.ExpiresAt != nil && time.Now().After(*apiToken.ExpiresAt) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "API token expired",
				})
				return
			}

			user, err := userRepo.GetUserByID(c.Request.Context(), apiToken.UserID)
			if err != nil || user == nil || !user.Active {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid credentials",
				})
				return
			}

			// Last-used tracking is best-effort and off the request path.
			tokenID := apiToken.ID
			safego.Go(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tokenRepo.UpdateLastUsed(ctx, tokenID)
			})

			c.Set(SessionKey, auth.NewSessionFromUser(user, "api_token"))
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
		})
	}
}

// authenticateAPIToken looks up candidate tokens by plaintext prefix and
// validates the provided token against each candidate's bcrypt hash.
func authenticateAPIToken(ctx context.Context, providedToken string, tokenRepo *repositories.APITokenRepository) (*models.APIToken, error) {
	tokens, err := tokenRepo.GetTokensByPrefix(ctx, auth.TokenPrefix(providedToken))
	if err != nil {
		return nil, err
	}

	for _, t := range tokens {
		if auth.ValidateAPIToken(providedToken, t.TokenHash) {
			return t, nil
		}
	}

	return nil, nil
}
