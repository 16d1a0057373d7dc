package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/handler"
	"github.com/noah-isme/obe-attainment-api/internal/middleware"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	"github.com/noah-isme/obe-attainment-api/pkg/config"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/obe-attainment-api/pkg/middleware/cors"
	"github.com/noah-isme/obe-attainment-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/obe-attainment-api/pkg/middleware/requestid"
	"github.com/noah-isme/obe-attainment-api/pkg/response"
)

type routeHandlers struct {
	outcomes    *handler.OutcomeHandler
	assessments *handler.AssessmentHandler
	records     *handler.RecordHandler
	reports     *handler.AttainmentReportHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metricsSvc *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limiter := ratelimit.New(cfg.RateLimit.SubmissionsPerSecond, cfg.RateLimit.Burst, ratelimit.ByClientIP)
	throttle := limiter.Middleware(func(c *gin.Context) {
		response.Error(c, appErrors.ErrTooManyRequests)
	})

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", h.metrics.Summary)

	api.GET("/outcomes", h.outcomes.List)
	api.PUT("/outcomes", h.outcomes.Upsert)
	api.GET("/outcomes/:code", h.outcomes.Get)

	api.POST("/assessments", h.assessments.Create)
	api.GET("/assessments/:id", h.assessments.Get)
	api.GET("/assessments/:id/mappings", h.assessments.Mappings)
	api.PUT("/assessments/:id/mappings", h.assessments.UpdateMappings)
	api.GET("/assessments/:id/end-term-grid", h.assessments.EndTermGrid)
	api.GET("/courses/:courseId/assessments", h.assessments.ListByCourse)

	records := api.Group("/records")
	records.GET("", h.records.List)
	records.POST("", throttle, h.records.Submit)
	records.POST("/end-term", throttle, h.records.SubmitEndTerm)
	records.POST("/bulk", throttle, h.records.Bulk)

	reports := api.Group("/reports")
	reports.GET("/students/:studentId", h.reports.StudentReport)
	reports.GET("/cohort", h.reports.CohortReport)
	reports.GET("/cohort/export", h.reports.Export)

	return r
}
