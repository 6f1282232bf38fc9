package security

import (
	"errors"
	"testing"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

func strptr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// RequireRole
// ---------------------------------------------------------------------------

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		wantErr bool
	}{
		{"admin allowed", models.RoleAdmin, []models.Role{models.RoleAdmin}, false},
		{"agent in list", models.RoleAgent, []models.Role{models.RoleTenantAdmin, models.RoleAgent}, false},
		{"user not in list", models.RoleUser, []models.Role{models.RoleAgent}, true},
		{"empty allow list denies", models.RoleAdmin, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.role, tt.allowed...)
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireRole(%s, %v) err = %v, wantErr %v", tt.role, tt.allowed, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("error = %v, want ErrForbidden", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RequirePermission: the full matrix from the role semantics
// admins and tenant admins bypass, agents depend on their map, users are
// denied unconditionally.
// ---------------------------------------------------------------------------

func TestRequirePermission_Matrix(t *testing.T) {
	tests := []struct {
		name    string
		role    models.Role
		perms   map[string]bool
		wantErr bool
	}{
		{"admin bypasses with nil map", models.RoleAdmin, nil, false},
		{"tenant admin bypasses with nil map", models.RoleTenantAdmin, nil, false},
		{"tenant admin bypasses even with explicit false", models.RoleTenantAdmin, map[string]bool{"tickets:delete": false}, false},
		{"agent with flag true", models.RoleAgent, map[string]bool{"tickets:delete": true}, false},
		{"agent with flag false", models.RoleAgent, map[string]bool{"tickets:delete": false}, true},
		{"agent with flag absent", models.RoleAgent, map[string]bool{"tickets:assign": true}, true},
		{"agent with nil map", models.RoleAgent, nil, true},
		{"user denied even with flag true", models.RoleUser, map[string]bool{"tickets:delete": true}, true},
		{"unknown role denied", models.Role("SUPPORT"), map[string]bool{"tickets:delete": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequirePermission(tt.role, "tickets:delete", tt.perms)
			if (err != nil) != tt.wantErr {
				t.Errorf("RequirePermission(%s) err = %v, wantErr %v", tt.role, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("error = %v, want ErrForbidden", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CheckTenantAccess
// ---------------------------------------------------------------------------

func TestCheckTenantAccess(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		target  string
		wantErr bool
	}{
		{"admin passes any tenant", Context{IsAdmin: true}, "t-other", false},
		{"admin with tenant passes any tenant", Context{TenantID: strptr("t-1"), IsAdmin: true}, "t-2", false},
		{"same tenant passes", Context{TenantID: strptr("t-1")}, "t-1", false},
		{"different tenant denied", Context{TenantID: strptr("t-1")}, "t-2", true},
		{"no tenant denied", Context{}, "t-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTenantAccess(tt.ctx, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckTenantAccess err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("error = %v, want ErrForbidden", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Context validation and classification
// ---------------------------------------------------------------------------

func TestContextValidate(t *testing.T) {
	if err := (Context{TenantID: strptr("t-1")}).Validate(); err != nil {
		t.Errorf("tenant context invalid: %v", err)
	}
	if err := (Context{IsAdmin: true}).Validate(); err != nil {
		t.Errorf("admin context invalid: %v", err)
	}
	if err := (Context{}).Validate(); err == nil {
		t.Error("no-tenant non-admin context validated, want error")
	}
	if err := (Context{TenantID: strptr("")}).Validate(); err == nil {
		t.Error("empty tenant id validated, want error")
	}
}

func TestTenantScope(t *testing.T) {
	if got := (Context{IsAdmin: true}).TenantScope(); got != "" {
		t.Errorf("admin scope = %q, want empty", got)
	}
	if got := (Context{TenantID: strptr("t-9")}).TenantScope(); got != "t-9" {
		t.Errorf("scope = %q, want t-9", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrUnauthenticated, KindUnauthenticated},
		{ErrForbidden, KindForbidden},
		{ErrNotFound, KindNotFound},
		{ErrConflict, KindConflict},
		{ErrContextBinding, KindContextBinding},
		{errors.New("driver glitch"), KindInternal},
		{nil, KindInternal},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
