package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	"github.com/draftwise/ragbox/internal/server/handlers/feedback"
	"github.com/draftwise/ragbox/internal/server/handlers/index"
	"github.com/draftwise/ragbox/internal/server/handlers/kpi"
	"github.com/draftwise/ragbox/internal/server/handlers/metrics"
	"github.com/draftwise/ragbox/internal/server/handlers/session"
	syncapi "github.com/draftwise/ragbox/internal/server/handlers/sync"
	"github.com/draftwise/ragbox/internal/server/middlewares"
	"github.com/draftwise/ragbox/internal/version"
)

func SetupRoutes(config *Config, svc *Services) http.Handler {
	r := gin.New()

	syncH := syncapi.New(svc.Syncer, svc.Jobs)
	sessionH := session.New(svc.Chat)
	feedbackH := feedback.New(svc.Chat, svc.Exporter)
	metricsH := metrics.New(svc.Chat)
	kpiH := kpi.New(svc.Chat, svc.Exporter)

	// a typed nil must not end up inside the interface
	var indexSyncer index.Syncer
	if svc.Index != nil {
		indexSyncer = svc.Index
	}
	indexH := index.New(indexSyncer)

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(cors.Default())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	v1 := r.Group("/api/v1")
	v1.Use(middlewares.RateLimiter(config.HTTP.RateLimit))
	{
		// document sync
		v1.POST("/sync/backfill", syncH.Backfill)
		v1.GET("/sync/backfill/:id", syncH.JobStatus)
		v1.POST("/sync/changes", syncH.Changes)

		// search index sync jobs
		v1.POST("/index/sync", indexH.Sync)
		v1.GET("/index/status", indexH.Status)
		v1.GET("/index/last-sync", indexH.LastSync)

		// chat sessions
		v1.POST("/sessions", sessionH.Dispatch)

		// feedback
		v1.POST("/feedback", feedbackH.Submit)
		v1.GET("/feedback", feedbackH.List)
		v1.DELETE("/feedback", feedbackH.Delete)
		v1.POST("/feedback/download", feedbackH.Download)

		adminOnly := middlewares.AdminOnly(config.Auth.JWTSecret)

		// usage metrics, admins only
		v1.GET("/metrics", adminOnly, metricsH.Get)

		// interaction log, admins only; daily login counts are open
		v1.GET("/chatbot-use", adminOnly, kpiH.Interactions)
		v1.DELETE("/chatbot-use", adminOnly, kpiH.Delete)
		v1.POST("/chatbot-use/download", adminOnly, kpiH.Download)
		v1.GET("/daily-logins", kpiH.DailyLogins)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
