// tokens.go implements API token self-service. Tokens belong to the calling
// user; no role check is needed because every operation is scoped to the
// session's own user id. These handlers run outside the Secure wrapper: the
// api_tokens table is keyed by user, not tenant, and sits outside the
// row-level security perimeter.
package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// TokenHandlers implements API token management.
type TokenHandlers struct {
	tokens *repositories.APITokenRepository
}

// NewTokenHandlers creates the token handler set.
func NewTokenHandlers(db *sqlx.DB) *TokenHandlers {
	return &TokenHandlers{tokens: repositories.NewAPITokenRepository(db)}
}

type createTokenRequest struct {
	Name      string     `json:"name" binding:"required,max=255"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// tokenResponse omits the stored hash; the raw token appears only in the
// creation response.
type tokenResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TokenPrefix string     `json:"token_prefix"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTokenResponse(t *models.APIToken) tokenResponse {
	return tokenResponse{
		ID:          t.ID,
		Name:        t.Name,
		TokenPrefix: t.TokenPrefix,
		ExpiresAt:   t.ExpiresAt,
		LastUsedAt:  t.LastUsedAt,
		CreatedAt:   t.CreatedAt,
	}
}

// Create issues a new API token for the calling user. The raw token is
// returned exactly once and never stored.
func (h *TokenHandlers) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req createTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "expires_at must be in the future"})
			return
		}

		raw, hash, err := auth.GenerateAPIToken()
		if err != nil {
			slog.Error("failed to generate api token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		token := &models.APIToken{
			UserID:      sess.User.ID,
			Name:        req.Name,
			TokenPrefix: auth.TokenPrefix(raw),
			TokenHash:   hash,
			ExpiresAt:   req.ExpiresAt,
		}
		if err := h.tokens.CreateToken(c.Request.Context(), token); err != nil {
			slog.Error("failed to persist api token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		resp := toTokenResponse(token)
		c.JSON(http.StatusCreated, gin.H{
			"token":     raw,
			"api_token": resp,
		})
	}
}

// List returns the calling user's tokens, without hashes.
func (h *TokenHandlers) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		tokens, err := h.tokens.ListByUser(c.Request.Context(), sess.User.ID)
		if err != nil {
			slog.Error("failed to list api tokens", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		out := make([]tokenResponse, 0, len(tokens))
		for _, t := range tokens {
			out = append(out, toTokenResponse(t))
		}
		c.JSON(http.StatusOK, gin.H{"api_tokens": out})
	}
}

// Delete revokes one of the calling user's tokens. The user id in the delete
// predicate makes revoking another user's token impossible regardless of role.
func (h *TokenHandlers) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		err := h.tokens.DeleteToken(c.Request.Context(), c.Param("id"), sess.User.ID)
		if err != nil {
			if security.ClassifyError(err) == security.KindNotFound {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			slog.Error("failed to delete api token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
