package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/config"
	"github.com/SAP-F-2025/survey-service/internal/handlers"
	"github.com/SAP-F-2025/survey-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/tasks"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/SAP-F-2025/survey-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	wmLogger := watermill.NewSlogLogger(logger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured); the service runs without it, trading
	// cache hits for repeated aggregation.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}
	cacheService := cache.NewCacheService(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(db)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Initialize queue transport
	publisher, subscriber, err := buildTransport(cfg, wmLogger)
	if err != nil {
		log.Fatalf("Failed to initialize queue transport: %v", err)
	}
	enqueuer := tasks.NewEnqueuer(publisher, logger)

	// Initialize task executor
	executorConfig := tasks.DefaultExecutorConfig()
	executorConfig.CleanupInterval = cfg.CleanupInterval
	executor, err := tasks.NewExecutor(
		subscriber,
		repo,
		cacheService,
		tasks.NewLogNotifier(logger),
		executorConfig,
		logger,
		wmLogger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize task executor: %v", err)
	}

	// Initialize validator and services
	v := validator.New()
	serviceManager := services.NewServiceManager(repo, cacheService, enqueuer, logger, v)
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go func() {
		if err := executor.Run(workerCtx); err != nil {
			logger.Error("Task executor stopped", "error", err)
		}
	}()
	<-executor.Running()
	go executor.RunCleanupLoop(workerCtx)

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests first, then drain workers, then close shared
	// resources.
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopWorkers()
	if err := executor.Close(); err != nil {
		log.Printf("Failed to close task executor: %v", err)
	}
	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close queue publisher: %v", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	logger.Info("Server exited")
}

// buildTransport selects the queue transport. The in-process transport serves
// single-node deployments where publisher and subscriber share the process;
// Kafka serves deployments with dedicated workers.
func buildTransport(cfg *config.Config, wmLogger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	if cfg.QueueDriver == "kafka" {
		publisher, err := tasks.NewKafkaPublisher(cfg.KafkaBrokers, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		subscriber, err := tasks.NewKafkaSubscriber(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		return publisher, subscriber, nil
	}

	pubsub := tasks.NewGoChannelPubSub(wmLogger)
	return pubsub, pubsub, nil
}
