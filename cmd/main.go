package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"shopcatalog/internal/caching"
	"shopcatalog/internal/config"
	"shopcatalog/internal/handlers"
	"shopcatalog/internal/jobs/background"
	"shopcatalog/internal/migrate"
	"shopcatalog/internal/repositories"
	"shopcatalog/internal/services"
	"shopcatalog/pkg/database"
	"shopcatalog/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection pool: created once, shared for the whole process.
	pool, err := database.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Object storage for image assets.
	storage, err := services.NewMinioStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Repositories
	categoryRepo := repositories.NewCategoryRepo(pool)
	productRepo := repositories.NewProductRepo(pool)

	// Services
	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	assetSvc := services.NewAssetService(storage, cfg.Minio.Bucket, log)
	categorySvc := services.NewCategoryService(categoryRepo, productRepo, assetSvc, cacheSvc, log)
	productSvc := services.NewProductService(productRepo, categoryRepo, assetSvc, cacheSvc, log)
	viewSvc := services.NewCatalogViewService(categoryRepo, productRepo, cacheSvc, log)

	// Handlers
	categoryHandlers := handlers.NewCategoryHandlers(categorySvc, viewSvc)
	productHandlers := handlers.NewProductHandlers(productSvc, viewSvc)
	assetHandlers := handlers.NewAssetHandlers(assetSvc)
	healthHandlers := handlers.NewHealthHandlers(pool)

	// Background cache warming
	scheduler, err := background.NewJobScheduler(viewSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn().Err(err).Msg("job scheduler shutdown failed")
		}
	}()

	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := e.Group("/v1")

	// Category routes
	v1.GET("/categories", categoryHandlers.ListCategories)
	v1.POST("/categories", categoryHandlers.CreateCategory)
	v1.GET("/categories/:id", categoryHandlers.GetCategory)
	v1.PUT("/categories/:id", categoryHandlers.UpdateCategory)
	v1.DELETE("/categories/:id", categoryHandlers.DeleteCategory)

	// Product routes
	v1.GET("/products", productHandlers.ListProducts)
	v1.POST("/products", productHandlers.CreateProduct)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.PUT("/products/:id", productHandlers.UpdateProduct)
	v1.DELETE("/products/:id", productHandlers.DeleteProduct)

	// Asset routes
	v1.GET("/assets/*", assetHandlers.GetAsset)
	v1.GET("/asset-url", assetHandlers.GetAssetURL)

	go func() {
		log.Info().Str("version", version).Str("addr", cfg.HTTP.Addr()).Msg("catalog server starting")
		if err := e.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("catalog server stopped")
}
