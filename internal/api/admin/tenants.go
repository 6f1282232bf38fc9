// Package admin implements the administrative HTTP handlers: tenant lifecycle,
// user management, audit log access, and API token self-service.
//
// Tenant and user handlers work on boundary repositories that query the root
// connection pool instead of the tenant-bound transaction, because their
// subjects (tenants, accounts) sit outside or across the row-level security
// perimeter. The access guards are therefore checked in these handlers before
// any query runs; this is the one place where application code, not the
// database, is the isolation boundary.
package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// TenantHandlers implements tenant lifecycle management, global admin only.
type TenantHandlers struct {
	tenants *repositories.TenantRepository
}

// NewTenantHandlers creates the tenant handler set.
func NewTenantHandlers(db *sqlx.DB) *TenantHandlers {
	return &TenantHandlers{tenants: repositories.NewTenantRepository(db)}
}

func callerRole(c *gin.Context) models.Role {
	sess := middleware.GetSession(c)
	if sess == nil {
		return ""
	}
	return sess.User.Role
}

func requireGlobalAdmin(c *gin.Context) error {
	if err := security.RequireRole(callerRole(c), models.RoleAdmin); err != nil {
		return fmt.Errorf("tenant management: %w", err)
	}
	return nil
}

type tenantRequest struct {
	Name   string  `json:"name" binding:"required,max=255"`
	Domain *string `json:"domain"`
	Active *bool   `json:"active"`
}

// Create provisions a new tenant.
func (h *TenantHandlers) Create(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireGlobalAdmin(c); err != nil {
		return 0, nil, err
	}

	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	tenant := &models.Tenant{
		Name:   req.Name,
		Domain: req.Domain,
		Active: true,
	}
	if req.Active != nil {
		tenant.Active = *req.Active
	}
	if err := h.tenants.CreateTenant(c.Request.Context(), tenant); err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, tenant, nil
}

// List returns all tenants.
func (h *TenantHandlers) List(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireGlobalAdmin(c); err != nil {
		return 0, nil, err
	}

	tenants, err := h.tenants.ListTenants(c.Request.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"tenants": tenants}, nil
}

// Get returns a single tenant.
func (h *TenantHandlers) Get(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireGlobalAdmin(c); err != nil {
		return 0, nil, err
	}

	tenant, err := h.tenants.GetTenantByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, tenant, nil
}

// Update changes a tenant's name, domain, or active flag. Deactivating a
// tenant locks out its users at the authentication boundary.
func (h *TenantHandlers) Update(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireGlobalAdmin(c); err != nil {
		return 0, nil, err
	}

	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	tenant, err := h.tenants.GetTenantByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return 0, nil, err
	}
	tenant.Name = req.Name
	tenant.Domain = req.Domain
	if req.Active != nil {
		tenant.Active = *req.Active
	}

	if err := h.tenants.UpdateTenant(c.Request.Context(), tenant); err != nil {
		return 0, nil, err
	}

	return http.StatusOK, tenant, nil
}

// Delete removes a tenant and everything it owns via schema cascades.
func (h *TenantHandlers) Delete(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireGlobalAdmin(c); err != nil {
		return 0, nil, err
	}

	if err := h.tenants.DeleteTenant(c.Request.Context(), c.Param("id")); err != nil {
		return 0, nil, err
	}

	return http.StatusNoContent, nil, nil
}
