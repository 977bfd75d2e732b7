package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/middleware"
	"github.com/noah-isme/shootdesk-api/pkg/config"
	"github.com/noah-isme/shootdesk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shootdesk-api/pkg/middleware/cors"
	"github.com/noah-isme/shootdesk-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/shootdesk-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", a.metrics.Health)
	r.GET("/metrics", a.metrics.Prometheus)

	if cfg.Env != config.EnvProduction || cfg.DocsOn {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.POST("/auth/login", a.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.tokens))
	secured.GET("/auth/me", a.auth.Me)

	bookings := secured.Group("/bookings")
	bookings.POST("", a.bookings.Create)
	bookings.GET("", a.bookings.List)
	bookings.GET("/changes", a.bookings.Changes)
	bookings.GET("/export", a.bookings.Export)
	bookings.POST("/copy-week", a.bookings.CopyWeek)
	bookings.POST("/bulk-actions", middleware.RequirePrivileged(), a.bookings.BulkAction)
	bookings.GET("/:id", a.bookings.Get)
	bookings.PUT("/:id", a.bookings.UpdateDraft)
	bookings.POST("/:id/actions", a.bookings.ApplyAction)
	bookings.GET("/:id/history", a.bookings.History)
	bookings.GET("/:id/locate", a.bookings.Locate)

	bookings.GET("/:id/eligible-operators", middleware.RequirePrivileged(), a.assignments.Eligible)
	bookings.PUT("/:id/assignment", middleware.RequirePrivileged(), a.assignments.Assign)
	bookings.DELETE("/:id/assignment", middleware.RequirePrivileged(), a.assignments.Unassign)
	bookings.POST("/:id/assignment/acknowledge", a.assignments.Acknowledge)

	secured.GET("/availability", a.availability.Get)
	secured.PUT("/availability", a.availability.Upsert)

	scans := ratelimit.NewStore(cfg.Checkpoint.ScansPerMinute)
	progress := secured.Group("/progress")
	progress.GET("/today", a.progress.Today)
	progress.GET("/:bookingId", a.progress.Get)
	progress.POST("/:bookingId/actions", ratelimit.Middleware(scans, middleware.OperatorKey, logr), a.progress.Act)

	secured.GET("/checkpoints/:locationId/token", middleware.RequirePrivileged(), a.progress.Token)

	return r
}
