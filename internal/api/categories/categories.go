// Package categories implements the ticket category HTTP handlers. Categories
// are tenant-scoped; listing is open to every authenticated caller in the
// tenant, while management requires the categories:manage permission.
package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// Handlers bundles the category handlers.
type Handlers struct {
	categories *repositories.CategoryRepository
}

// NewHandlers creates the category handler set.
func NewHandlers() *Handlers {
	return &Handlers{categories: repositories.NewCategoryRepository()}
}

func requireManage(c *gin.Context) error {
	sess := middleware.GetSession(c)
	var role models.Role
	var perms map[string]bool
	if sess != nil {
		role = sess.User.Role
		perms = sess.User.Permissions
	}
	return security.RequirePermission(role, string(auth.PermCategoriesManage), perms)
}

type categoryRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
}

// Create adds a category to the caller's tenant.
func (h *Handlers) Create(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireManage(c); err != nil {
		return 0, nil, err
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	category := &models.Category{
		TenantID:    sctx.TenantScope(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.categories.Create(c.Request.Context(), tx, category); err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, category, nil
}

// List returns the tenant's categories ordered by name.
func (h *Handlers) List(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	categories, err := h.categories.List(c.Request.Context(), tx)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"categories": categories}, nil
}

// Get returns a single category.
func (h *Handlers) Get(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	category, err := h.categories.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, category, nil
}

// Update renames or redescribes a category.
func (h *Handlers) Update(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireManage(c); err != nil {
		return 0, nil, err
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	category, err := h.categories.GetByID(c.Request.Context(), tx, c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	category.Name = req.Name
	category.Description = req.Description

	if err := h.categories.Update(c.Request.Context(), tx, category); err != nil {
		return 0, nil, err
	}

	return http.StatusOK, category, nil
}

// Delete removes a category. Tickets referencing it keep existing with a null
// category via the schema's ON DELETE SET NULL.
func (h *Handlers) Delete(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireManage(c); err != nil {
		return 0, nil, err
	}

	if err := h.categories.Delete(c.Request.Context(), tx, c.Param("id")); err != nil {
		return 0, nil, err
	}

	return http.StatusNoContent, nil, nil
}
