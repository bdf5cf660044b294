package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Srijanomar3094/parser-server/config"
	"github.com/Srijanomar3094/parser-server/handler"
	"github.com/Srijanomar3094/parser-server/middleware"
	"github.com/Srijanomar3094/parser-server/pkg/logger"
	"github.com/Srijanomar3094/parser-server/queue"
	"github.com/Srijanomar3094/parser-server/service"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx := context.Background()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize contract store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	storage, err := buildStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize file storage", "error", err)
		os.Exit(1)
	}

	lifecycleOpts := []service.LifecycleOption{
		service.WithMaxUploadSize(cfg.Upload.MaxSizeBytes),
		service.WithStageDelay(time.Duration(cfg.Parse.StageDelayMS) * time.Millisecond),
	}

	// The lifecycle and its scheduler reference each other: the
	// scheduler runs lifecycle parses, the lifecycle enqueues onto the
	// scheduler. Build the lifecycle first and hand the scheduler its
	// Run method.
	lifecycle := service.NewLifecycle(store, storage, service.StubExtractor{}, lifecycleOpts...)

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	stopScheduler, err := attachScheduler(schedCtx, cfg, lifecycle)
	if err != nil {
		slog.Error("failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(lifecycle)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	contracts := api.Group("/")
	if cfg.AuthEnabled() {
		contracts.Use(middleware.AuthMiddleware(&cfg.Auth))
		contracts.GET("/auth/me", authHandler.GetCurrentUser)
	}
	{
		contracts.POST("/contracts/upload", contractHandler.Upload)
		contracts.GET("/contracts", contractHandler.List)
		contracts.GET("/contracts/:id", contractHandler.GetDetail)
		contracts.GET("/contracts/:id/status", contractHandler.GetStatus)
		contracts.GET("/contracts/:id/download", contractHandler.Download)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	schedCancel()
	stopScheduler()
	slog.Info("server exited gracefully")
}

// loadConfig reads the YAML config, falling back to defaults when no
// config file exists so the server can run out of the box.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no config file found, using defaults", "path", path)
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (service.ContractStore, func(), error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return service.NewMemoryStore(cfg.Store.MaxContracts), func() {}, nil
	case "postgres":
		store, err := service.NewPostgresStore(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		store, err := service.NewRedisStore(ctx, rdb)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func buildStorage(ctx context.Context, cfg *config.Config) (service.FileStorage, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		return service.NewLocalStorage(cfg.Storage.Local.Dir)
	case "minio":
		storage, err := service.NewMinioStorage(&cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// attachScheduler builds the configured scheduler, wires it into the
// lifecycle and starts it. The returned func stops it.
func attachScheduler(ctx context.Context, cfg *config.Config, lifecycle *service.Lifecycle) (func(), error) {
	switch cfg.Queue.Backend {
	case "", "local":
		sched := queue.NewLocalScheduler(cfg.Queue.Workers, cfg.Queue.BufferSize, lifecycle.Run)
		lifecycle.SetScheduler(sched)
		sched.Start(ctx)
		return sched.Wait, nil
	case "asynq":
		sched, err := queue.NewAsynqScheduler(cfg.Queue.RedisURL, cfg.Queue.Workers, lifecycle.Run)
		if err != nil {
			return nil, err
		}
		lifecycle.SetScheduler(sched)
		sched.Start(ctx)
		return sched.Shutdown, nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Queue.Backend)
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
