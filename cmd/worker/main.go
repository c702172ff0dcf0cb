package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Anning01/playlet-clip/internal/cache"
	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/database"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/internal/pipeline"
	"github.com/Anning01/playlet-clip/internal/queue"
	"github.com/Anning01/playlet-clip/internal/storage"
	"github.com/Anning01/playlet-clip/internal/tracing"
	"github.com/Anning01/playlet-clip/internal/webhook"
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

	closer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.Warnf("Tracing disabled: %v", err)
	} else {
		defer closer.Close()
	}

	if err := cfg.Pipeline.EnsureDirs(); err != nil {
		logger.Fatalf("Failed to create working directories: %v", err)
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

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Build the pipeline
	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}

	notifier := webhook.NewNotifier(cfg.Webhook, logger)

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

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
	}

	worker := &Worker{
		id:       workerID,
		store:    repo,
		progress: progressCache,
		objects:  stor,
		runner:   pipe,
		notify:   notifier,
		workDir:  cfg.Pipeline.WorkDir,
		logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.ConsumeTasks(ctx, func(task *models.Task) error {
		return worker.handleTask(ctx, task)
	}); err != nil {
		logger.Fatalf("Failed to start consumer: %v", err)
	}

	logger.WithWorkerID(workerID).Info("Worker started, waiting for tasks")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
}
