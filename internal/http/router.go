// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/ai"
	"github.com/parleyhq/go-messenger-backend/internal/config"
	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/http/handlers"
	"github.com/parleyhq/go-messenger-backend/internal/http/middleware"
	"github.com/parleyhq/go-messenger-backend/internal/repo"
	"github.com/parleyhq/go-messenger-backend/internal/services"
)

// authRepoShim adapts the repository free functions to the services.AuthRepo
// interface expected by the AuthService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type authRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (authRepoShim) CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, username, email, passwordHash)
}

// GetUserByUsername proxies repo.GetUserByUsername.
func (authRepoShim) GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.GetUserByUsername(ctx, db, username)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and
// rate limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//
// The idempotency validator and the rate limiter are route-group middleware,
// not global: they must run after RequireAuth so the replay lookup and the
// limiter key see the authenticated principal. On the authed group the order
// is RequireAuth, then the validator (its replay hit sets the rate bypass),
// then the limiter; the public credential endpoints carry only the limiter,
// keyed by client IP.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, provider ai.Provider, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Idempotency validation, applied per route group below. The scope is the
	// write target derived from the path: group posts carry the group id;
	// direct sends carry the recipient in the body, so their replay check
	// happens in the handler instead.
	idemValidator := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost &&
				strings.Contains(c.FullPath(), "/groups/") &&
				strings.HasSuffix(c.FullPath(), "/messages") {
				return "group:" + c.Param("id")
			}
			return ""
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)

	// Token-bucket rate limiter per user/IP, applied per route group below.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// 7) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/provider
	authSvc := services.NewAuthService(db, authRepoShim{}, []byte(cfg.JWTSecret))
	authSvc.TokenTTL = cfg.TokenTTL
	msgSvc := &services.MessageService{DB: db, MaxContentRunes: cfg.MaxContentRunes}
	groupSvc := &services.GroupService{DB: db, MaxContentRunes: cfg.MaxContentRunes}
	aiSvc := &services.AiService{DB: db, Provider: provider, MaxPromptRunes: cfg.MaxContentRunes}
	h := handlers.New(authSvc, msgSvc, groupSvc, aiSvc)
	if cfg.IdempotencyTTL > 0 {
		h.IdempotencyTTL = cfg.IdempotencyTTL
	}

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// Credential endpoints stay unauthenticated; the limiter keys them by
	// client IP since no principal exists yet.
	api.POST("/auth/register", rl.Handler(), h.Register)
	api.POST("/auth/login", rl.Handler(), h.Login)

	// RequireAuth first: the validator's replay lookup and the limiter's
	// per-user key both need the verified principal, and a detected replay
	// must set its rate bypass before the limiter runs.
	authed := api.Group("", middleware.RequireAuth([]byte(cfg.JWTSecret)), idemValidator, rl.Handler())
	{
		// Direct messages. List responses are gzip-compressed; polling
		// clients fetch them on a fixed cadence.
		authed.POST("/messages", h.SendMessage)
		authed.PUT("/messages/:id/read", h.MarkMessageRead)
		authed.DELETE("/messages/:id", h.DeleteMessage)
		authed.GET("/conversations", gzip.Gzip(gzip.DefaultCompression), h.ListConversations)
		authed.GET("/conversations/:userID/messages", gzip.Gzip(gzip.DefaultCompression), h.GetThread)

		// Groups
		authed.POST("/groups", h.CreateGroup)
		authed.GET("/groups", h.ListGroups)
		authed.POST("/groups/:id/members", h.AddGroupMember)
		authed.GET("/groups/:id/members", h.ListGroupMembers)
		authed.POST("/groups/:id/messages", h.PostGroupMessage)
		authed.GET("/groups/:id/messages", gzip.Gzip(gzip.DefaultCompression), h.ListGroupMessages)

		// AI conversation log
		authed.POST("/ai/chat", h.AiChat)
		authed.GET("/ai/history", gzip.Gzip(gzip.DefaultCompression), h.AiHistory)
		authed.DELETE("/ai/history", h.AiClearHistory)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
