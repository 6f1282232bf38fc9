// Package api wires together all HTTP routes for the helpdesk platform.
//
// Route grouping philosophy:
//   - Everything under /api/v1 requires authentication; there are no anonymous
//     application routes. Session issuance lives in the external identity
//     provider, so this service never serves a login flow.
//   - Tenant-scoped routes are wrapped in middleware.Secure, which binds the
//     caller's tenant scope onto the transaction their queries run in.
//   - /api/v1/admin/* is for global administration (tenant lifecycle); the
//     handlers enforce the ADMIN role on top of the wrapper.
//
// Liveness (/health), readiness (/ready), and version endpoints are
// unauthenticated for use by orchestration probes.
package api

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/helpdesk-platform/helpdesk/internal/api/admin"
	"github.com/helpdesk-platform/helpdesk/internal/api/categories"
	"github.com/helpdesk-platform/helpdesk/internal/api/tickets"
	"github.com/helpdesk-platform/helpdesk/internal/audit"
	"github.com/helpdesk-platform/helpdesk/internal/config"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/middleware"
	"github.com/helpdesk-platform/helpdesk/internal/security"
	"github.com/helpdesk-platform/helpdesk/internal/storage"
)

// BackgroundServices holds resources that must be released during graceful
// shutdown. The caller (cmd/server) calls Shutdown() after the HTTP server has
// drained in-flight requests.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	auditShipper audit.Shipper
	redisClient  *redis.Client
}

// Shutdown stops background goroutines and closes external connections.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, database *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)

	// Boundary repositories on the root pool
	userRepo := repositories.NewUserRepository(database)
	tokenRepo := repositories.NewAPITokenRepository(database)
	auditRepo := repositories.NewAuditRepository(database)

	// Security binder: scopes each secured request's transaction to the
	// caller's tenant.
	binder := security.NewBinder(database)

	// Audit logger with optional external shipping
	var shipper audit.Shipper
	if len(cfg.Audit.Shippers) > 0 {
		shipper, err = audit.NewMultiShipper(shipperConfigs(cfg.Audit.Shippers))
		if err != nil {
			log.Fatalf("Failed to initialize audit shippers: %v", err)
		}
	}
	auditLogger := audit.NewLogger(auditRepo, shipper)

	// Handlers
	ticketHandlers := tickets.NewHandlers(storageBackend, cfg.Attachments.MaxSizeBytes)
	categoryHandlers := categories.NewHandlers()
	tenantHandlers := admin.NewTenantHandlers(database)
	userHandlers := admin.NewUserHandlers(database)
	auditHandlers := admin.NewAuditHandlers(auditRepo)
	tokenHandlers := admin.NewTokenHandlers(database)

	// Rate limiters: shared state via Redis when configured, per-instance
	// token buckets otherwise.
	bg := &BackgroundServices{auditShipper: shipper}
	var generalLimit, uploadLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Security.RateLimiting.RedisAddr,
			Password: cfg.Security.RateLimiting.RedisPassword,
			DB:       cfg.Security.RateLimiting.RedisDB,
		})
		bg.redisClient = rdb
		generalLimit = middleware.RedisRateLimitMiddleware(middleware.NewRedisRateLimiter(rdb, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
		}))
		uploadLimit = middleware.RedisRateLimitMiddleware(middleware.NewRedisRateLimiter(rdb, middleware.UploadRateLimitConfig()))
	} else {
		generalLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
			CleanupInterval:   5 * time.Minute,
		})
		uploadLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())
		bg.rateLimiters = []*middleware.RateLimiter{generalLimiter, uploadLimiter}
		generalLimit = middleware.RateLimitMiddleware(generalLimiter)
		uploadLimit = middleware.RateLimitMiddleware(uploadLimiter)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Probes
	router.GET("/health", healthCheckHandler(database))
	router.GET("/ready", readinessHandler(database, storageBackend))
	router.GET("/version", versionHandler())

	// All application routes require authentication.
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(userRepo, tokenRepo))
	if cfg.Security.RateLimiting.Enabled {
		apiV1.Use(generalLimit)
	}
	if cfg.Audit.Enabled {
		apiV1.Use(middleware.AuditMiddleware(auditLogger, middleware.AuditConfig{
			LogReadOperations: cfg.Audit.LogReadOperations,
			LogFailedRequests: cfg.Audit.LogFailedRequests,
		}))
	}
	{
		// Tickets
		apiV1.POST("/tickets", middleware.Secure(binder, ticketHandlers.Create))
		apiV1.GET("/tickets", middleware.Secure(binder, ticketHandlers.List))
		apiV1.GET("/tickets/:id", middleware.Secure(binder, ticketHandlers.Get))
		apiV1.PATCH("/tickets/:id", middleware.Secure(binder, ticketHandlers.Update))
		apiV1.DELETE("/tickets/:id", middleware.Secure(binder, ticketHandlers.Delete))

		// Comments
		apiV1.POST("/tickets/:id/comments", middleware.Secure(binder, ticketHandlers.CreateComment))
		apiV1.GET("/tickets/:id/comments", middleware.Secure(binder, ticketHandlers.ListComments))
		apiV1.DELETE("/tickets/:id/comments/:comment_id", middleware.Secure(binder, ticketHandlers.DeleteComment))

		// Attachments; uploads get a stricter rate limit
		uploadRoute := apiV1.Group("")
		if cfg.Security.RateLimiting.Enabled {
			uploadRoute.Use(uploadLimit)
		}
		uploadRoute.POST("/tickets/:id/attachments", middleware.Secure(binder, ticketHandlers.UploadAttachment))
		apiV1.GET("/tickets/:id/attachments", middleware.Secure(binder, ticketHandlers.ListAttachments))
		apiV1.GET("/tickets/:id/attachments/:attachment_id/download", middleware.Secure(binder, ticketHandlers.DownloadAttachment))
		apiV1.DELETE("/tickets/:id/attachments/:attachment_id", middleware.Secure(binder, ticketHandlers.DeleteAttachment))

		// Categories
		apiV1.POST("/categories", middleware.Secure(binder, categoryHandlers.Create))
		apiV1.GET("/categories", middleware.Secure(binder, categoryHandlers.List))
		apiV1.GET("/categories/:id", middleware.Secure(binder, categoryHandlers.Get))
		apiV1.PUT("/categories/:id", middleware.Secure(binder, categoryHandlers.Update))
		apiV1.DELETE("/categories/:id", middleware.Secure(binder, categoryHandlers.Delete))

		// User management (global admins and tenant admins)
		apiV1.POST("/users", middleware.Secure(binder, userHandlers.Create))
		apiV1.GET("/users", middleware.Secure(binder, userHandlers.List))
		apiV1.GET("/users/:id", middleware.Secure(binder, userHandlers.Get))
		apiV1.PUT("/users/:id", middleware.Secure(binder, userHandlers.Update))

		// Audit log access
		apiV1.GET("/audit-logs", middleware.Secure(binder, auditHandlers.List))

		// API token self-service
		apiV1.POST("/tokens", tokenHandlers.Create())
		apiV1.GET("/tokens", tokenHandlers.List())
		apiV1.DELETE("/tokens/:id", tokenHandlers.Delete())

		// Tenant lifecycle (global admin only)
		apiV1.POST("/admin/tenants", middleware.Secure(binder, tenantHandlers.Create))
		apiV1.GET("/admin/tenants", middleware.Secure(binder, tenantHandlers.List))
		apiV1.GET("/admin/tenants/:id", middleware.Secure(binder, tenantHandlers.Get))
		apiV1.PUT("/admin/tenants/:id", middleware.Secure(binder, tenantHandlers.Update))
		apiV1.DELETE("/admin/tenants/:id", middleware.Secure(binder, tenantHandlers.Delete))
	}

	return router, bg
}

// shipperConfigs maps the configuration file's shipper sections onto the audit
// package's config types.
func shipperConfigs(configs []config.AuditShipperConfig) []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(configs))
	for _, c := range configs {
		sc := audit.ShipperConfig{
			Enabled: c.Enabled,
			Type:    c.Type,
		}
		if c.Webhook != nil {
			sc.Webhook = &audit.WebhookConfig{
				URL:           c.Webhook.URL,
				Headers:       c.Webhook.Headers,
				Timeout:       time.Duration(c.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     c.Webhook.BatchSize,
				FlushInterval: time.Duration(c.Webhook.FlushInterval) * time.Second,
			}
		}
		if c.File != nil {
			sc.File = &audit.FileConfig{
				Path:       c.File.Path,
				MaxSizeMB:  c.File.MaxSizeMB,
				MaxBackups: c.File.MaxBackups,
			}
		}
		out = append(out, sc)
	}
	return out
}

// healthCheckHandler returns the liveness status of the service.
func healthCheckHandler(database *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service. Unlike the
// liveness probe, this also checks the storage backend so that a readiness
// gate fails when attachment uploads and downloads would error.
func readinessHandler(database *sqlx.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := database.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Probe with a known-absent sentinel key: Exists() exercises
		// authentication and connectivity without creating any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware emits one structured request log line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(middleware.RequestIDKey)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS based on the configured allowed origins.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
