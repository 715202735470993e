package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/muni-gth/papeletas-api/api/swagger"
	"github.com/muni-gth/papeletas-api/internal/handler"
	"github.com/muni-gth/papeletas-api/internal/middleware"
	"github.com/muni-gth/papeletas-api/internal/remote"
	"github.com/muni-gth/papeletas-api/internal/repository"
	"github.com/muni-gth/papeletas-api/internal/service"
	"github.com/muni-gth/papeletas-api/internal/store"
	"github.com/muni-gth/papeletas-api/pkg/cache"
	"github.com/muni-gth/papeletas-api/pkg/config"
	"github.com/muni-gth/papeletas-api/pkg/database"
	"github.com/muni-gth/papeletas-api/pkg/logger"
	corsmiddleware "github.com/muni-gth/papeletas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/muni-gth/papeletas-api/pkg/middleware/requestid"
	"github.com/muni-gth/papeletas-api/pkg/storage"
)

// @title Papeletas API
// @version 0.1.0
// @description Gateway for the municipal papeletas de salida service
// @BasePath /
// @schemes http

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

	metrics := service.NewMetricsService()
	validate := validator.New()

	remoteClient := remote.New(cfg.Remote, logr, metrics)
	registry := store.NewRegistry(remoteClient, logr, metrics, cfg.Listing.DefaultPageSize)

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	sessionRepo := repository.NewSessionRepository(redisClient)
	exportJobRepo := repository.NewExportJobRepository(redisClient, cfg.Exports.SignedURLTTL)
	summaryRepo := repository.NewSummaryCacheRepository(redisClient)

	var auditRepo *repository.AuditRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect audit database", "error", err)
		}
		defer db.Close() //nolint:errcheck
		auditRepo = repository.NewAuditRepository(db)
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	authSvc := service.NewAuthService(registry, sessionRepo, auditSink(auditRepo), metrics, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	summarySvc := service.NewSummaryService(remoteClient, summaryRepo, logr, cfg.Summary.CacheTTL)
	papeletaSvc := service.NewPapeletaService(remoteClient, auditSink(auditRepo), summarySvc, validate, logr, cfg.Attachments, cfg.Listing.DefaultPageSize)
	exportSvc := service.NewExportService(remoteClient, exportJobRepo, exportStorage, signer, metrics, validate, logr, service.ExportServiceConfig{
		PageSize:      cfg.Exports.PageSize,
		FileTTL:       cfg.Exports.SignedURLTTL,
		WorkerCount:   cfg.Exports.WorkerConcurrency,
		WorkerRetries: cfg.Exports.WorkerRetries,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exportSvc.Start(rootCtx, cfg.Exports.CleanupInterval)
	defer exportSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	papeletaHandler := handler.NewPapeletaHandler(papeletaSvc)
	summaryHandler := handler.NewSummaryHandler(summarySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	adminHandler := handler.NewAdminHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/exports/download", exportHandler.Download)

		secured := api.Group("", middleware.Session(authSvc))
		{
			secured.POST("/auth/logout", authHandler.Logout)
			secured.GET("/papeletas", papeletaHandler.List)
			secured.POST("/papeletas", papeletaHandler.Register)
			secured.GET("/papeletas/:id/documento", papeletaHandler.Document)
			secured.GET("/resumen", summaryHandler.Get)
			secured.POST("/exports", exportHandler.Create)
			secured.GET("/exports/:id", exportHandler.Status)
		}

		admin := api.Group("/admin", middleware.AdminKey(cfg.Admin.KeyHash))
		{
			admin.POST("/exports/cleanup", adminHandler.CleanupExports)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// auditSink returns nil when the audit database is disabled so services
// can skip journaling without a nil-interface pitfall.
func auditSink(repo *repository.AuditRepository) service.AuditRecorder {
	if repo == nil {
		return nil
	}
	return repo
}
