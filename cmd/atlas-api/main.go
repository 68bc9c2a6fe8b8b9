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

	_ "github.com/fra-connect/atlas-api/api/swagger"
	"github.com/fra-connect/atlas-api/internal/handler"
	"github.com/fra-connect/atlas-api/internal/middleware"
	"github.com/fra-connect/atlas-api/internal/repository"
	"github.com/fra-connect/atlas-api/internal/service"
	"github.com/fra-connect/atlas-api/pkg/cache"
	"github.com/fra-connect/atlas-api/pkg/config"
	"github.com/fra-connect/atlas-api/pkg/database"
	"github.com/fra-connect/atlas-api/pkg/jobs"
	"github.com/fra-connect/atlas-api/pkg/logger"
	corsmiddleware "github.com/fra-connect/atlas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fra-connect/atlas-api/pkg/middleware/requestid"
	"github.com/fra-connect/atlas-api/pkg/storage"
)

// @title FRA-Connect Atlas API
// @version 1.0.0
// @description Forest Rights Atlas & Decision Support System
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: analytics degrades to computing on every read.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, analytics caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	uploadStore, err := storage.NewFileStore(cfg.Documents.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload store", "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	villageRepo := repository.NewVillageRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	var analyticsService *service.AnalyticsService
	if cacheRepo != nil {
		analyticsService = service.NewAnalyticsService(claimRepo, villageRepo, cacheRepo, cfg.Analytics.CacheTTL, logr)
	} else {
		analyticsService = service.NewAnalyticsService(claimRepo, villageRepo, nil, cfg.Analytics.CacheTTL, logr)
	}

	villageService := service.NewVillageService(villageRepo, validate, logr)
	claimService := service.NewClaimService(claimRepo, analyticsService, validate, logr, cfg.Claims.NumberPrefix)
	userService := service.NewUserService(userRepo, validate, logr)
	mapService := service.NewMapService(villageRepo, claimRepo, logr)
	seedService := service.NewSeedService(villageRepo, claimRepo, analyticsService, logr)

	ocrEngine := service.NewMockOCREngine(cfg.OCR.SimulatedLatency)
	documentService := service.NewDocumentService(documentRepo, uploadStore, ocrEngine, metrics, logr, service.DocumentServiceConfig{
		MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Documents.AllowedMIMEs,
		MaxListLimit: cfg.Documents.MaxListLimit,
		DefaultLimit: cfg.Documents.DefaultListLimit,
	})

	var reportService *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportStore, err := storage.NewFileStore(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report store", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportRepo := repository.NewReportRepository(db)
		reportService = service.NewReportService(reportRepo, claimRepo, villageRepo, reportStore, signer, metrics, logr, cfg.APIPrefix)
		reportQueue = jobs.NewQueue("reports", reportService.Process, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportService.SetQueue(reportQueue)
		reportQueue.Start(context.Background())
		defer reportQueue.Stop()

		cleanupTicker := time.NewTicker(time.Hour)
		defer cleanupTicker.Stop()
		go func() {
			for range cleanupTicker.C {
				reportService.CleanupExpired(cfg.Reports.SignedURLTTL)
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	systemHandler := handler.NewSystemHandler(db, redisClient, seedService, metrics)
	villageHandler := handler.NewVillageHandler(villageService)
	claimHandler := handler.NewClaimHandler(claimService)
	userHandler := handler.NewUserHandler(userService)
	documentHandler := handler.NewDocumentHandler(documentService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	mapHandler := handler.NewMapHandler(mapService)

	r.GET("/health", systemHandler.Health)
	r.GET("/ready", systemHandler.Ready)
	r.GET("/metrics", systemHandler.Metrics)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/", systemHandler.Root)
	api.POST("/mock-data/generate", systemHandler.GenerateMockData)

	api.GET("/villages", villageHandler.List)
	api.POST("/villages", villageHandler.Create)
	api.GET("/villages/:id", villageHandler.Get)

	api.GET("/claims", claimHandler.List)
	api.POST("/claims", claimHandler.Create)
	api.GET("/claims/:id", claimHandler.Get)
	api.PUT("/claims/:id", claimHandler.Update)

	api.GET("/users", userHandler.List)
	api.POST("/users", userHandler.Create)

	api.POST("/documents/upload", documentHandler.Upload)
	api.POST("/documents/bulk-upload", documentHandler.BulkUpload)
	api.POST("/documents/bulk-ocr", documentHandler.BulkOCR)
	api.GET("/documents", documentHandler.List)
	api.GET("/documents/:id", documentHandler.Get)
	api.PUT("/documents/:id", documentHandler.Update)
	api.DELETE("/documents/:id", documentHandler.Delete)
	api.GET("/documents/:id/download", documentHandler.Download)
	api.POST("/documents/:id/ocr", documentHandler.RunOCR)
	api.POST("/documents/:id/version", documentHandler.CreateVersion)
	api.GET("/documents/:id/versions", documentHandler.ListVersions)

	api.GET("/analytics", analyticsHandler.Summary)

	api.GET("/map/villages", mapHandler.Villages)
	api.GET("/map/claims", mapHandler.Claims)

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		api.POST("/reports/claims-register", reportHandler.Request)
		api.GET("/reports/:id", reportHandler.Status)
		api.GET("/reports/:id/download", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
