package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/middleware"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/service"
	"github.com/jansaakshi/backend/store"
)

// Deps are the collaborators the HTTP API is built from. Ingestion and
// Verifier may be nil.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Sessions  service.SessionStore
	Asker     Asker
	Ingestion Ingestion
	Verifier  CallbackVerifier
	Metrics   *metrics.Metrics
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	defaultCity := cfg.Server.DefaultCity

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
	}
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))

	router.GET("/health", healthHandler(d.Store))
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	serveStatic(router, cfg.Server.StaticDir)

	authHandler := NewAuthHandler(&cfg.Auth, d.Store, d.Sessions)
	queryHandler := NewQueryHandler(d.Asker, d.Store, defaultCity, d.Metrics)
	records := NewRecordsHandler(d.Store, defaultCity)
	civic := NewCivicHandler(d.Store, defaultCity)

	requireAuth := middleware.Auth(&cfg.Auth, d.Sessions)
	optionalAuth := middleware.OptionalAuth(&cfg.Auth, d.Sessions)

	api := router.Group("/api")
	{
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)

		api.POST("/query", queryHandler.Ask)
		api.GET("/projects", records.Projects)
		api.GET("/projects/delayed", records.Delayed)
		api.GET("/projects/ward/:ward_no", records.WardProjects)
		api.GET("/projects/:id", records.Project)
		api.GET("/search", records.Search)
		api.GET("/wards", records.Wards)
		api.GET("/wards/stats", records.WardStats)
		api.GET("/meetings", records.Meetings)
		api.GET("/meetings/:id", records.Meeting)
		api.GET("/stats", records.Stats)
		api.GET("/cities", records.Cities)
		api.GET("/contractors", records.Contractors)
		api.GET("/contractors/reviews", civic.Reviews)
		api.GET("/contractor-projects", records.ContractorProjects)

		api.POST("/complaints", optionalAuth, civic.CreateComplaint)
	}

	protected := api.Group("/")
	protected.Use(requireAuth)
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/complaints", civic.MyComplaints)
		protected.POST("/follow", civic.Follow)
		protected.POST("/unfollow", civic.Unfollow)
		protected.GET("/following", civic.Following)
		protected.POST("/contractors/reviews",
			middleware.RequireRole(model.RoleAuthorizedUser, model.RoleAdmin), civic.SubmitReview)
	}

	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/complaints", civic.ListComplaints)
		admin.PATCH("/complaints/:id", civic.UpdateComplaint)
		admin.POST("/promote-user", civic.PromoteUser)
	}

	if d.Ingestion != nil {
		ingest := NewIngestHandler(d.Ingestion, d.Verifier, cfg.OCR.UID, d.Store, defaultCity, cfg.Ingest.MaxUploadMB)
		api.POST("/ocr/callback", ingest.Callback)
		admin.POST("/upload-pdf", ingest.Upload)
		admin.GET("/jobs", ingest.Jobs)
		admin.GET("/jobs/:id", ingest.Job)
	} else {
		admin.POST("/upload-pdf", func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document ingestion is not configured"})
		})
	}

	return router
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			logger.Warn(c.Request.Context(), "health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// serveStatic serves the web frontend from dir when it has an index.html
func serveStatic(router *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Warn(context.Background(), "static directory has no index.html", "directory", dir)
		return
	}
	router.Static("/static", dir)
	router.StaticFile("/", index)
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := c.GetHeader("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-City")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware disables caching for API responses
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		c.Next()
	}
}
