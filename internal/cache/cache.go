// Package cache holds the fast-changing task state in Redis: live
// pipeline progress and recently-read task records. The database stays
// the source of truth; everything here expires.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// DefaultProgressTTL bounds how long a stale progress snapshot survives
// a crashed worker.
const DefaultProgressTTL = 24 * time.Hour

// Cache provides caching functionality using Redis
type Cache struct {
	client      *redis.Client
	progressTTL time.Duration
}

// NewCache creates a new cache instance
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.ProgressTTL
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}

	return &Cache{client: client, progressTTL: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Progress Operations

// SetProgress stores the latest pipeline progress snapshot for a task.
func (c *Cache) SetProgress(ctx context.Context, taskID string, progress models.TaskProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	key := fmt.Sprintf("task:progress:%s", taskID)
	return c.client.Set(ctx, key, data, c.progressTTL).Err()
}

// GetProgress retrieves the latest progress snapshot for a task. A nil
// result with nil error means no snapshot exists.
func (c *Cache) GetProgress(ctx context.Context, taskID string) (*models.TaskProgress, error) {
	key := fmt.Sprintf("task:progress:%s", taskID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get progress from cache: %w", err)
	}

	var progress models.TaskProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}

	return &progress, nil
}

// DeleteProgress removes the progress snapshot for a task.
func (c *Cache) DeleteProgress(ctx context.Context, taskID string) error {
	key := fmt.Sprintf("task:progress:%s", taskID)
	return c.client.Del(ctx, key).Err()
}

// Task Record Operations

// SetTask caches a task record
func (c *Cache) SetTask(ctx context.Context, task *models.Task, ttl time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	key := fmt.Sprintf("task:%s", task.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetTask retrieves a task record from cache
func (c *Cache) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	key := fmt.Sprintf("task:%s", taskID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get task from cache: %w", err)
	}

	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// DeleteTask removes a task record from cache
func (c *Cache) DeleteTask(ctx context.Context, taskID string) error {
	key := fmt.Sprintf("task:%s", taskID)
	return c.client.Del(ctx, key).Err()
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
