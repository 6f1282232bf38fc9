package security

import (
	"errors"
	"testing"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/models"
)

func TestResolve_NoSession(t *testing.T) {
	_, err := Resolve(nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve(nil) err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolve_EmptyUser(t *testing.T) {
	_, err := Resolve(&auth.Session{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolve_TenantUser(t *testing.T) {
	sess := &auth.Session{User: auth.SessionUser{
		ID:       "u-1",
		Role:     models.RoleAgent,
		TenantID: strptr("t-1"),
	}}

	ctx, err := Resolve(sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ctx.IsAdmin {
		t.Error("IsAdmin = true for agent, want false")
	}
	if ctx.TenantID == nil || *ctx.TenantID != "t-1" {
		t.Errorf("TenantID = %v, want t-1", ctx.TenantID)
	}
	if ctx.UserID == nil || *ctx.UserID != "u-1" {
		t.Errorf("UserID = %v, want u-1", ctx.UserID)
	}
}

func TestResolve_GlobalAdmin(t *testing.T) {
	sess := &auth.Session{User: auth.SessionUser{
		ID:   "u-admin",
		Role: models.RoleAdmin,
	}}

	ctx, err := Resolve(sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ctx.IsAdmin {
		t.Error("IsAdmin = false for global admin, want true")
	}
	if ctx.TenantID != nil {
		t.Errorf("TenantID = %v for global admin, want nil", ctx.TenantID)
	}
}

// TenantAdmin is not a global admin: the admin flag must stay false so the
// storage engine keeps filtering rows to their own tenant.
func TestResolve_TenantAdminIsNotGlobalAdmin(t *testing.T) {
	sess := &auth.Session{User: auth.SessionUser{
		ID:       "u-2",
		Role:     models.RoleTenantAdmin,
		TenantID: strptr("t-1"),
	}}

	ctx, err := Resolve(sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ctx.IsAdmin {
		t.Error("IsAdmin = true for tenant admin, want false")
	}
}

// A non-admin session with no tenant would produce the invalid context shape;
// it must fail closed during resolution, before any binding can happen.
func TestResolve_NonAdminWithoutTenantFailsClosed(t *testing.T) {
	sess := &auth.Session{User: auth.SessionUser{
		ID:   "u-3",
		Role: models.RoleUser,
	}}

	_, err := Resolve(sess)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}
