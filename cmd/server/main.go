package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liherfashion/inventory-admin/config"
	"github.com/liherfashion/inventory-admin/internal/app/controller"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/db"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/router"
	"github.com/liherfashion/inventory-admin/internal/scheduler"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/liherfashion/inventory-admin/pkg/redis"
	"github.com/liherfashion/inventory-admin/pkg/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting inventory admin server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Driver,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Draft sessions live in Redis when it is enabled; otherwise in process
	var (
		drafts  repository.DraftRepository
		revoker service.TokenRevoker
		checker middleware.RevocationChecker
	)
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		drafts = repository.NewRedisDraftRepository(redis.GetClient(), cfg.Draft.SessionTTL)
		tokens := redis.NewTokenRevoker(redis.GetClient())
		revoker, checker = tokens, tokens
	} else {
		logger.Warn("Redis disabled: draft sessions are kept in memory and logout does not revoke tokens")
		drafts = repository.NewMemoryDraftRepository(cfg.Draft.SessionTTL)
	}

	images, err := storage.New(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize image storage", err)
	}

	// Initialize repositories
	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)
	productRepo := repository.NewProductRepository(database)
	variantRepo := repository.NewVariantRepository(database)
	stockRepo := repository.NewStockRepository(database)
	requestRepo := repository.NewRequestRepository(database)

	hasher, err := util.NewPasswordHasher(cfg.Password.BcryptCost)
	if err != nil {
		logger.Fatal("Invalid password hashing cost", err)
	}

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo)
	productService := service.NewProductService(productRepo, variantRepo, catalogService, images, drafts)
	draftService := service.NewVariantDraftService(drafts, productService, catalogService, images)
	userService := service.NewUserService(userRepo, hasher)
	authService := service.NewAuthService(userRepo, hasher, revoker, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	exportService := service.NewExportService(variantRepo, catalogService)
	stockService := service.NewStockService(stockRepo, productService)
	requestService := service.NewRequestService(requestRepo, variantRepo)

	// Direct uploads are only possible against the bucket
	var presigner controller.Presigner
	if s3, ok := images.(*storage.S3); ok {
		presigner = s3
	}

	controllers := router.Controllers{
		Auth:    controller.NewAuthController(authService, userService),
		Drafts:  controller.NewDraftController(draftService),
		Product: controller.NewProductController(productService, exportService),
		Catalog: controller.NewCatalogController(catalogService, exportService),
		User:    controller.NewUserController(userService),
		Upload:  controller.NewUploadController(presigner),
		Stock:   controller.NewStockController(stockService),
		Request: controller.NewRequestController(requestService),
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, checker, userRepo)
	engine := router.NewRouter(controllers, authMiddleware, cfg).Setup()

	sweeper := scheduler.NewStagedImageSweeper(cfg.Draft.SweepSchedule, cfg.Draft.SessionTTL, drafts, images)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start staged image sweeper", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
