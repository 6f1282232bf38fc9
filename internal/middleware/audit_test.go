package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/audit"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/security"
)

func newAuditLogger(t *testing.T) (*audit.Logger, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	repo := repositories.NewAuditRepository(sqlx.NewDb(mockDB, "sqlmock"))
	return audit.NewLogger(repo, nil), mock
}

func waitForExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("audit write never happened: %v", mock.ExpectationsWereMet())
}

func auditRouter(logger *audit.Logger, cfg AuditConfig, sctx *security.Context, status int) *gin.Engine {
	router := gin.New()
	router.Use(AuditMiddleware(logger, cfg))
	handler := func(c *gin.Context) {
		if sctx != nil {
			c.Set(SecurityContextKey, *sctx)
		}
		c.Status(status)
	}
	router.POST("/api/v1/tickets", handler)
	router.GET("/api/v1/tickets", handler)
	router.PUT("/api/v1/admin/tenants/:id", handler)
	return router
}

func tenantCtx(tenantID, userID string) *security.Context {
	return &security.Context{TenantID: &tenantID, UserID: &userID}
}

func TestAudit_RecordsSuccessfulWrite(t *testing.T) {
	logger, mock := newAuditLogger(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := auditRouter(logger, AuditConfig{}, tenantCtx("tenant-1", "user-1"), http.StatusCreated)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/tickets", nil))

	waitForExpectations(t, mock)
}

func TestAudit_SkipsReadsByDefault(t *testing.T) {
	logger, mock := newAuditLogger(t)
	// No Exec expectation: any insert fails the test.

	router := auditRouter(logger, AuditConfig{}, tenantCtx("tenant-1", "user-1"), http.StatusOK)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/tickets", nil))

	time.Sleep(50 * time.Millisecond)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestAudit_RecordsReadsWhenConfigured(t *testing.T) {
	logger, mock := newAuditLogger(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := auditRouter(logger, AuditConfig{LogReadOperations: true}, tenantCtx("tenant-1", "user-1"), http.StatusOK)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/tickets", nil))

	waitForExpectations(t, mock)
}

func TestAudit_SkipsFailuresByDefault(t *testing.T) {
	logger, mock := newAuditLogger(t)

	router := auditRouter(logger, AuditConfig{}, tenantCtx("tenant-1", "user-1"), http.StatusConflict)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/tickets", nil))

	time.Sleep(50 * time.Millisecond)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestAudit_SkipsUnauthenticated(t *testing.T) {
	logger, mock := newAuditLogger(t)

	router := auditRouter(logger, AuditConfig{}, nil, http.StatusCreated)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/tickets", nil))

	time.Sleep(50 * time.Millisecond)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestAudit_AdminActionAttributedToRouteTenant(t *testing.T) {
	logger, mock := newAuditLogger(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "tenant-7", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	adminID := "admin-1"
	adminCtx := &security.Context{IsAdmin: true, UserID: &adminID}
	router := auditRouter(logger, AuditConfig{}, adminCtx, http.StatusOK)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PUT", "/api/v1/admin/tenants/tenant-7", nil))

	waitForExpectations(t, mock)
}
