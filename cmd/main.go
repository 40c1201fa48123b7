package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/caching"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/jobs/background"
	"storefront/internal/messaging"
	"storefront/internal/middleware"
	"storefront/internal/pipeline"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		panic(err)
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database.URL, database.PoolOptions{MaxConns: cfg.Database.MaxConns}, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.ClosePool(pool, logger)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32)
		logger.Warn("JWT_SECRET not set, generated a random secret; admin tokens will not survive a restart")
	}

	var cacheService caching.CacheService
	if cfg.Redis.Addr != "" {
		cacheService = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	} else {
		logger.Info("redis not configured, using in-process catalog cache")
		cacheService = caching.NewMemoryCacheService()
	}

	var imageService services.ImageService
	if cfg.Storage.AccessKey != "" {
		imageService, err = services.NewMinioImageService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL, cfg.Storage.Bucket, cfg.Storage.PresignExpiry)
		if err != nil {
			logger.Fatal("failed to create image service", zap.Error(err))
		}
	} else {
		logger.Info("object storage not configured, category grid renders without images")
	}

	// Repositories
	categoryRepo := repositories.NewCategoryRepo(pool)
	attributeRepo := repositories.NewAttributeRepo(pool)
	valueRepo := repositories.NewAttributeValueRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	filterSettingsRepo := repositories.NewFilterSettingsRepo(pool)

	// Services
	hierarchyService := services.NewHierarchyService(categoryRepo, cacheService, imageService, cfg.Catalog.CacheTTL, logger)
	attributeService := services.NewAttributeService(attributeRepo, filterSettingsRepo, logger)
	facetService := services.NewFacetService(attributeRepo, valueRepo, productRepo, cacheService, cfg.Catalog.CacheTTL, logger)
	catalogService := services.NewCatalogService(productRepo, attributeService, facetService, logger)

	graph := pipeline.NewGraph(catalogService, facetService, attributeService, hierarchyService, logger)
	registry := pipeline.NewRegistry(graph, cfg.Catalog.SessionIdle, cfg.Catalog.MemoLimit)
	invalidator := pipeline.NewInvalidator(cacheService, registry, logger)

	scheduler, err := background.NewJobScheduler(hierarchyService, registry, cacheService, background.Intervals{
		Warmup:       cfg.Catalog.WarmupInterval,
		SessionSweep: cfg.Catalog.SessionSweep,
		CacheSweep:   cfg.Catalog.SessionSweep,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create job scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Messaging.URL != "" {
		listener := messaging.NewListener(invalidator, logger)
		if err := listener.Connect(ctx, cfg.Messaging.URL, cfg.Messaging.Exchange, cfg.Messaging.Topic); err != nil {
			logger.Fatal("failed to subscribe to catalog changes", zap.Error(err))
		}
		defer listener.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = handlers.SonicSerializer{}

	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handlers.SessionHeader},
		ExposeHeaders: []string{"X-API-Version"},
	}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	healthHandlers := handlers.NewHealthHandlers(pool, cacheService, imageService)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	catalogHandlers := handlers.NewCatalogHandlers(graph, registry, hierarchyService, attributeService, invalidator, logger)
	v1 := versionMiddleware.VersionRoute(e, "v1")
	catalogHandlers.RegisterRoutes(v1, middleware.AdminJWT(jwtSecret), middleware.RequireRole(cfg.Auth.AdminRole))

	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("storefront stopped", zap.Duration("grace", cfg.Server.ShutdownTimeout.Round(time.Second)))
}
