package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/obe-attainment-api/api/swagger"
	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/handler"
	"github.com/noah-isme/obe-attainment-api/internal/repository"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	"github.com/noah-isme/obe-attainment-api/pkg/cache"
	"github.com/noah-isme/obe-attainment-api/pkg/config"
	"github.com/noah-isme/obe-attainment-api/pkg/database"
	"github.com/noah-isme/obe-attainment-api/pkg/export"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
	"github.com/noah-isme/obe-attainment-api/pkg/logger"
)

// @title OBE Attainment API
// @version 1.0.0
// @description Scores assessments against graduate attributes, course outcomes and program outcomes.
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	scale := attainment.ParseScale(cfg.Attainment.ClassificationScale)

	outcomeRepo := repository.NewOutcomeRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "obe:", logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Attainment.CatalogCacheTTL, logr, redisClient != nil)
	catalogSvc := service.NewCatalogService(outcomeRepo, cacheSvc, cfg.Attainment.CatalogCacheTTL, validate, logr)

	var reportCache *service.CacheService
	if cfg.Attainment.ReportCacheEnabled {
		reportCache = cacheSvc
	}
	reportSvc := service.NewAttainmentReportService(recordRepo, assessmentRepo, reportCache, cfg.Attainment.ReportCacheTTL, metricsSvc, scale, logr)

	attainmentSvc := service.NewAttainmentService(recordRepo, assessmentRepo, catalogSvc, reportSvc, metricsSvc, service.AttainmentServiceConfig{
		Scale:   scale,
		Workers: cfg.Attainment.ScoringWorkers,
	}, validate, logr)

	rescoreQueue := jobs.NewQueue("rescore", attainmentSvc.HandleRescoreJob, jobs.QueueConfig{
		Workers:    cfg.Rescoring.Workers,
		MaxRetries: cfg.Rescoring.Retries,
		RetryDelay: cfg.Rescoring.RetryDelay,
		Logger:     logr,
		OnResult: func(_ jobs.Job, err error) {
			metricsSvc.RecordRescore(err)
		},
	})

	assessmentSvc := service.NewAssessmentService(assessmentRepo, catalogSvc, rescoreQueue, rand.New(rand.NewSource(time.Now().UnixNano())), validate, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(cacheRepo.Ping)
	}

	handlers := routeHandlers{
		outcomes:    handler.NewOutcomeHandler(catalogSvc),
		assessments: handler.NewAssessmentHandler(assessmentSvc),
		records:     handler.NewRecordHandler(attainmentSvc),
		metrics:     handler.NewMetricsHandler(metricsSvc, checks),
	}
	// Pass an untyped nil when exports are off; a nil *ExportService is a non-nil interface.
	if cfg.Exports.Enabled {
		exporter := service.NewExportService(reportSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
		handlers.reports = handler.NewAttainmentReportHandler(reportSvc, exporter)
	} else {
		handlers.reports = handler.NewAttainmentReportHandler(reportSvc, nil)
	}

	// Not bound to ctx: requests drained by Shutdown may still enqueue rescores.
	rescoreQueue.Start(context.Background())
	defer rescoreQueue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, metricsSvc, handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "scale", scale)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
