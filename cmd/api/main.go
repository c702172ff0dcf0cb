package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anning01/playlet-clip/internal/cache"
	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/database"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/internal/middleware"
	"github.com/Anning01/playlet-clip/internal/queue"
	"github.com/Anning01/playlet-clip/pkg/models"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)
	if middleware.AuthEnabled() {
		logger.Info("JWT authentication enabled for mutating routes")
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize progress cache
	progressCache, err := cache.NewCache(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer progressCache.Close()

	// Initialize queue
	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	api := &API{
		store:    repo,
		progress: progressCache,
		queue:    q,
		cfg:      cfg,
		logger:   logger,
	}

	router := setupRouter(api, logger)

	// Metrics server on its own port
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(ctx)
		}()
	}

	// Keep the task gauges fresh while the server runs.
	gaugeCtx, stopGauges := context.WithCancel(context.Background())
	defer stopGauges()
	go refreshTaskGauges(gaugeCtx, repo, q, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", api.healthCheck)

	limiter := middleware.NewRateLimiter(20, 40)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter))
	{
		// Reads
		v1.GET("/tasks", api.listTasks)
		v1.GET("/tasks/next", api.nextTask)
		v1.GET("/tasks/:id", api.getTask)
		v1.GET("/tasks/:id/progress", api.getTaskProgress)
		v1.GET("/config", api.getConfig)

		// Mutations require a token when auth is configured
		mutating := v1.Group("")
		mutating.Use(middleware.JWTAuth())
		{
			mutating.POST("/tasks", api.createTasks)
			mutating.POST("/tasks/:id/status", api.updateTaskStatus)
			mutating.POST("/tasks/reset-failed", api.resetFailed)
			mutating.DELETE("/tasks/:id", api.deleteTask)
		}
	}

	return router
}

// refreshTaskGauges periodically samples the task table and queue depth
// so the in-progress and queued gauges track reality even when no
// requests arrive.
func refreshTaskGauges(ctx context.Context, repo *database.Repository, q *queue.Queue, logger *logging.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.WithError(err).Debug("failed to count tasks for gauges")
			}
			continue
		}
		inProgress := 0
		for status, count := range counts {
			if status != models.StatusPending && !status.Terminal() {
				inProgress += count
			}
		}

		depth, err := q.QueueDepth()
		if err != nil {
			logger.WithError(err).Debug("failed to read queue depth")
			depth = counts[models.StatusPending]
		}

		metrics.UpdateTaskMetrics(inProgress, depth)
	}
}
