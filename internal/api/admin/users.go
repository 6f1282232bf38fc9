// users.go implements account management. Global admins manage any tenant's
// users; tenant admins manage their own tenant only. The user repository is a
// boundary repository (root pool, no RLS), so every handler checks tenant
// access explicitly before touching it.
package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

// UserHandlers implements user account management.
type UserHandlers struct {
	users *repositories.UserRepository
}

// NewUserHandlers creates the user handler set.
func NewUserHandlers(db *sqlx.DB) *UserHandlers {
	return &UserHandlers{users: repositories.NewUserRepository(db)}
}

func requireUserManagement(c *gin.Context) error {
	if err := security.RequireRole(callerRole(c), models.RoleAdmin, models.RoleTenantAdmin); err != nil {
		return fmt.Errorf("user management: %w", err)
	}
	return nil
}

// targetTenant resolves which tenant a user-management request operates on. A
// global admin may name any tenant via the tenant_id query parameter; everyone
// else is pinned to their own tenant. The second return is false when the
// request is malformed; a 400 has already been written in that case.
func targetTenant(c *gin.Context, sctx security.Context) (string, bool) {
	if !sctx.IsAdmin {
		return sctx.TenantScope(), true
	}
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id query parameter is required"})
		return "", false
	}
	return tenantID, true
}

type createUserRequest struct {
	Email       string          `json:"email" binding:"required,email"`
	Name        string          `json:"name" binding:"required,max=255"`
	Role        string          `json:"role" binding:"required"`
	Permissions map[string]bool `json:"permissions"`
}

// Create provisions a user account in the target tenant. Only a global admin
// may create another global admin, and global admins carry no tenant.
func (h *UserHandlers) Create(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireUserManagement(c); err != nil {
		return 0, nil, err
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	role := models.Role(req.Role)
	if !role.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return http.StatusBadRequest, nil, nil
	}
	if err := auth.ValidatePermissionMap(req.Permissions); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	user := &models.User{
		Email:       req.Email,
		Name:        req.Name,
		Role:        role,
		Permissions: req.Permissions,
		Active:      true,
	}

	if role == models.RoleAdmin {
		if !sctx.IsAdmin {
			return 0, nil, fmt.Errorf("%w: only global admins may create global admins", security.ErrForbidden)
		}
		// Global admins carry no tenant; TenantID stays nil.
	} else {
		tenantID, ok := targetTenant(c, sctx)
		if !ok {
			return http.StatusBadRequest, nil, nil
		}
		user.TenantID = &tenantID
	}

	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, user, nil
}

// List returns the target tenant's users.
func (h *UserHandlers) List(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireUserManagement(c); err != nil {
		return 0, nil, err
	}

	tenantID, ok := targetTenant(c, sctx)
	if !ok {
		return http.StatusBadRequest, nil, nil
	}

	users, err := h.users.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"users": users}, nil
}

// Get returns a single user, subject to tenant access.
func (h *UserHandlers) Get(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireUserManagement(c); err != nil {
		return 0, nil, err
	}

	user, err := h.users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	if user.TenantID == nil {
		// Global admin accounts are visible to global admins only.
		if !sctx.IsAdmin {
			return 0, nil, security.ErrNotFound
		}
	} else if err := security.CheckTenantAccess(sctx, *user.TenantID); err != nil {
		// NotFound, not Forbidden: existence of accounts in other tenants is
		// not disclosed.
		return 0, nil, security.ErrNotFound
	}

	return http.StatusOK, user, nil
}

type updateUserRequest struct {
	Name        *string         `json:"name"`
	Role        *string         `json:"role"`
	Permissions map[string]bool `json:"permissions"`
	Active      *bool           `json:"active"`
}

// Update changes a user's name, role, permission map, or active flag.
// Deactivation takes effect at the next authentication.
func (h *UserHandlers) Update(c *gin.Context, sctx security.Context, tx *sqlx.Tx) (int, interface{}, error) {
	if err := requireUserManagement(c); err != nil {
		return 0, nil, err
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest, nil, nil
	}

	user, err := h.users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return 0, nil, err
	}

	if user.TenantID == nil {
		if !sctx.IsAdmin {
			return 0, nil, security.ErrNotFound
		}
	} else if err := security.CheckTenantAccess(sctx, *user.TenantID); err != nil {
		return 0, nil, security.ErrNotFound
	}

	if req.Role != nil {
		role := models.Role(*req.Role)
		if !role.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return http.StatusBadRequest, nil, nil
		}
		// Role moves across the tenant boundary (to or from global admin) are
		// account re-provisioning, not an update.
		if (role == models.RoleAdmin) != (user.Role == models.RoleAdmin) {
			return 0, nil, fmt.Errorf("%w: cannot change a user to or from the global admin role", security.ErrForbidden)
		}
		user.Role = role
	}
	if req.Permissions != nil {
		if err := auth.ValidatePermissionMap(req.Permissions); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return http.StatusBadRequest, nil, nil
		}
		user.Permissions = req.Permissions
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := h.users.UpdateUser(c.Request.Context(), user); err != nil {
		return 0, nil, err
	}

	return http.StatusOK, user, nil
}
