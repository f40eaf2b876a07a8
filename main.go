package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/config"
	"github.com/RISHIK92/adventa-backend/internal/handlers"
	"github.com/RISHIK92/adventa-backend/internal/metrics"
	"github.com/RISHIK92/adventa-backend/internal/repositories/postgres"
	"github.com/RISHIK92/adventa-backend/internal/services"
	"github.com/RISHIK92/adventa-backend/internal/utils"
	"github.com/RISHIK92/adventa-backend/internal/validator"
	"github.com/RISHIK92/adventa-backend/internal/worker"
	"github.com/RISHIK92/adventa-backend/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis holds the in-progress answers, so it is not optional here.
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		AutoMigrate: true,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger.With("component", "events"))
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}

	appMetrics := metrics.New()

	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repo:      repoManager.GetRepository(),
		Buffer:    cache.NewRedisProgressBuffer(redisClient, cfg.ProgressBufferTTL),
		Cache:     cache.NewCacheManager(redisClient),
		Publisher: publisher,
		Metrics:   appMetrics,
		Logger:    slogLogger,
		Validator: validator.New(),
	}, services.ServiceManagerConfig{
		Background: worker.Config{
			Workers:    cfg.Background.Workers,
			QueueSize:  cfg.Background.QueueSize,
			JobTimeout: cfg.Background.JobTimeout,
		},
		CommunityCacheTTL: cfg.CommunityCacheTTL,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, logger, appMetrics).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "Server forced to shutdown")
	}

	// In-flight submissions are done; let queued refreshes and events finish.
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "Failed to shutdown services")
	}

	if err := repoManager.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "Failed to close connections")
	}

	logger.Info("Server exited")
}
