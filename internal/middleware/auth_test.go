package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-platform/helpdesk/internal/auth"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
)

var userCols = []string{"id", "tenant_id", "email", "name", "role", "permissions", "active", "created_at", "updated_at"}

func signTestJWT(t *testing.T, userID string) string {
	t.Helper()
	claims := &auth.Claims{
		UserID: userID,
		Email:  "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-jwt-secret-that-is-32-chars!!"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewAPITokenRepository(db)

	router := gin.New()
	router.Use(AuthMiddleware(userRepo, tokenRepo))
	router.GET("/whoami", func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":     sess.User.ID,
			"auth_method": sess.AuthMethod,
		})
	})
	return router, mock
}

func doAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Header validation
// ---------------------------------------------------------------------------

func TestAuth_MissingHeader(t *testing.T) {
	router, _ := newAuthRouter(t)
	if w := doAuth(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_NotBearer(t *testing.T) {
	router, _ := newAuthRouter(t)
	if w := doAuth(router, "Basic dXNlcjpwYXNz"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_EmptyToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	if w := doAuth(router, "Bearer   "); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ---------------------------------------------------------------------------
// JWT path
// ---------------------------------------------------------------------------

func TestAuth_ValidJWT(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "tenant-1", "alice@example.com", "Alice", "AGENT", nil, true, time.Now(), time.Now()))

	w := doAuth(router, "Bearer "+signTestJWT(t, "user-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestAuth_JWTUnknownUser(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	if w := doAuth(router, "Bearer "+signTestJWT(t, "ghost")); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_JWTInactiveUser(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "tenant-1", "alice@example.com", "Alice", "AGENT", nil, false, time.Now(), time.Now()))

	if w := doAuth(router, "Bearer "+signTestJWT(t, "user-1")); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ---------------------------------------------------------------------------
// API token path
// ---------------------------------------------------------------------------

func TestAuth_ValidAPIToken(t *testing.T) {
	router, mock := newAuthRouter(t)

	plaintext := "hdp_0123456789abcdef"
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tokenCols := []string{"id", "user_id", "name", "token_prefix", "token_hash", "expires_at", "last_used_at", "created_at"}
	mock.ExpectQuery("SELECT.*FROM api_tokens.*token_prefix").
		WithArgs(auth.TokenPrefix(plaintext)).
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow("token-1", "user-1", "ci", auth.TokenPrefix(plaintext), string(hash), nil, nil, time.Now()))
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "tenant-1", "alice@example.com", "Alice", "AGENT", nil, true, time.Now(), time.Now()))
	// Async last-used update may or may not land before the test ends.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectExec("UPDATE api_tokens SET last_used_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doAuth(router, "Bearer "+plaintext)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestAuth_ExpiredAPIToken(t *testing.T) {
	router, mock := newAuthRouter(t)

	plaintext := "hdp_0123456789abcdef"
	hash, _ := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	expired := time.Now().Add(-time.Hour)

	tokenCols := []string{"id", "user_id", "name", "token_prefix", "token_hash", "expires_at", "last_used_at", "created_at"}
	mock.ExpectQuery("SELECT.*FROM api_tokens.*token_prefix").
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow("token-1", "user-1", "ci", auth.TokenPrefix(plaintext), string(hash), expired, nil, time.Now()))

	if w := doAuth(router, "Bearer "+plaintext); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_WrongAPIToken(t *testing.T) {
	router, mock := newAuthRouter(t)

	otherHash, _ := bcrypt.GenerateFromPassword([]byte("hdp_other_token_entirely"), bcrypt.MinCost)
	tokenCols := []string{"id", "user_id", "name", "token_prefix", "token_hash", "expires_at", "last_used_at", "created_at"}
	mock.ExpectQuery("SELECT.*FROM api_tokens.*token_prefix").
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow("token-1", "user-1", "ci", "hdp_012345", string(otherHash), nil, nil, time.Now()))

	if w := doAuth(router, "Bearer hdp_0123456789abcdef"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
