// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/config"
	"github.com/dale-app/carnaval-backend/internal/http/handlers"
	"github.com/dale-app/carnaval-backend/internal/http/middleware"
	"github.com/dale-app/carnaval-backend/internal/notify"
	"github.com/dale-app/carnaval-backend/internal/routes"
	"github.com/dale-app/carnaval-backend/internal/services"
	"github.com/dale-app/carnaval-backend/internal/session"
	"github.com/dale-app/carnaval-backend/internal/storage"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
//  9. gzip (WebSocket and metrics excluded)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store storage.ObjectStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (8 MiB: photo uploads ride multipart forms)
	r.Use(limitBody(8 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: true,
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

	// 9) Compression; the WebSocket upgrade and metrics scrape stay plain.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedExtensions([]string{".jpg", ".jpeg", ".png"}),
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "Rota não encontrada")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "Método não permitido")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/store
	authSvc := &services.AuthService{
		DB:        db,
		Store:     store,
		JWTSecret: []byte(cfg.JWTSecret),
		TokenTTL:  cfg.TokenTTL,
	}
	authSvc.Sessions = session.NewManager(authSvc.LoadProfile, cfg.AuthWait)

	hub := notify.NewHub(db, notify.DefaultSnapshotLimit)
	notifSvc := &services.NotificationService{DB: db, Hub: hub}
	ficadaSvc := &services.FicadaService{DB: db, Store: store, Notifier: notifSvc}
	connectSvc := &services.ConnectService{DB: db}

	h := handlers.New(authSvc, ficadaSvc, notifSvc, connectSvc, routes.NewResolver(), cfg.PublicBaseURL)

	secret := []byte(cfg.JWTSecret)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Auth (anonymous)
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		// Public surfaces: connect card and route resolution work before
		// login, but honor a bearer token when present.
		pub := api.Group("", middleware.OptionalAuth(secret))
		{
			pub.GET("/connect/:userId", h.ConnectCard)
			pub.GET("/routes/resolve", h.ResolveRoute)
		}

		// Session-gated surfaces
		priv := api.Group("", middleware.Auth(secret))
		{
			priv.POST("/auth/logout", h.Logout)
			priv.GET("/me", h.Me)
			priv.PUT("/me", h.UpdateMe)
			priv.GET("/me/connect-link", h.MyConnectLink)

			priv.GET("/ficadas", h.ListFicadas)
			priv.POST("/ficadas", h.CreateFicada)
			priv.GET("/ficadas/:id", h.GetFicada)
			priv.PUT("/ficadas/:id", h.UpdateFicada)
			priv.DELETE("/ficadas/:id", h.DeleteFicada)

			priv.GET("/notifications/ws", h.SubscribeNotifications)
			priv.POST("/notifications/:id/read", h.MarkNotificationRead)
		}
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
