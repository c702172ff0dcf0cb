package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/database"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// taskStore is the slice of the repository the API uses.
type taskStore interface {
	CreateTasks(ctx context.Context, tasks []*models.Task) ([]*models.Task, int, error)
	ClaimNextPending(ctx context.Context, workerID string) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, status models.TaskStatus, limit, offset int) ([]*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, errorMsg, outputPath string) error
	ResetFailed(ctx context.Context) ([]*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Health(ctx context.Context) error
}

// progressStore reads live pipeline progress snapshots.
type progressStore interface {
	GetProgress(ctx context.Context, taskID string) (*models.TaskProgress, error)
	DeleteProgress(ctx context.Context, taskID string) error
	Ping(ctx context.Context) error
}

// taskPublisher dispatches created tasks to workers.
type taskPublisher interface {
	PublishTask(ctx context.Context, task *models.Task) error
}

// API holds the handler dependencies.
type API struct {
	store    taskStore
	progress progressStore
	queue    taskPublisher
	cfg      *config.Config
	logger   *logging.Logger
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "component": "database", "error": err.Error()})
		return
	}
	if err := api.progress.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "component": "redis", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// createTasksRequest creates one task per video, all sharing a style
// and optional blur geometry overrides.
type createTasksRequest struct {
	Style          string      `json:"style" binding:"required"`
	Videos         []taskVideo `json:"videos" binding:"required,min=1"`
	BlurHeight     int         `json:"blur_height"`
	BlurY          int         `json:"blur_y"`
	SubtitleMargin int         `json:"subtitle_margin"`
}

type taskVideo struct {
	VideoPath    string `json:"video_path" binding:"required"`
	SubtitlePath string `json:"subtitle_path"`
	OutputPath   string `json:"output_path"`
}

// createTasks bulk-creates clip tasks. Resubmitting the same drama
// folder is normal, so duplicates are skipped rather than rejected;
// the response reports both counts. Created tasks are published to the
// queue immediately.
func (api *API) createTasks(c *gin.Context) {
	var req createTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks := make([]*models.Task, 0, len(req.Videos))
	for _, video := range req.Videos {
		tasks = append(tasks, &models.Task{
			Style:          req.Style,
			VideoPath:      video.VideoPath,
			SubtitlePath:   video.SubtitlePath,
			OutputPath:     video.OutputPath,
			BlurHeight:     req.BlurHeight,
			BlurY:          req.BlurY,
			SubtitleMargin: req.SubtitleMargin,
		})
	}

	created, skipped, err := api.store.CreateTasks(c.Request.Context(), tasks)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	published := 0
	for _, task := range created {
		metrics.RecordTaskCreated(task.Style)
		if err := api.queue.PublishTask(c.Request.Context(), task); err != nil {
			// Workers also pull via /tasks/next, so an unpublished task
			// is delayed, not lost.
			api.logger.WithTaskID(task.ID).WithError(err).Warn("failed to publish task")
			continue
		}
		published++
	}

	c.JSON(http.StatusCreated, gin.H{
		"created":   created,
		"count":     len(created),
		"skipped":   skipped,
		"published": published,
	})
}

// nextTask claims the oldest pending task for a pull-mode worker.
func (api *API) nextTask(c *gin.Context) {
	workerID := c.Query("worker_id")
	if workerID == "" {
		workerID = "api-claim"
	}

	task, err := api.store.ClaimNextPending(c.Request.Context(), workerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending tasks available"})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (api *API) getTask(c *gin.Context) {
	task, err := api.store.GetTask(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (api *API) listTasks(c *gin.Context) {
	var status models.TaskStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseTaskStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = parsed
	}

	limit := parseIntDefault(c.Query("limit"), 20, 1, 100)
	offset := parseIntDefault(c.Query("offset"), 0, 0, 1<<30)

	tasks, err := api.store.ListTasks(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks,
		"limit":  limit,
		"offset": offset,
	})
}

type statusUpdateRequest struct {
	Status     string `json:"status" binding:"required"`
	ErrorMsg   string `json:"error_msg"`
	OutputPath string `json:"output_path"`
}

// updateTaskStatus records a worker's status report for a task.
func (api *API) updateTaskStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := api.store.UpdateTaskStatus(c.Request.Context(), id, status, req.ErrorMsg, req.OutputPath); err != nil {
		if errors.Is(err, database.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task, err := api.store.GetTask(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}

// getTaskProgress returns the live pipeline snapshot for a running task.
func (api *API) getTaskProgress(c *gin.Context) {
	progress, err := api.progress.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No progress recorded for task"})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// resetFailed returns failed tasks to pending and publishes them back
// onto the queue. Their original messages were dead-lettered when the
// worker rejected them, so without a fresh publish a reset task would
// sit pending forever.
func (api *API) resetFailed(c *gin.Context) {
	tasks, err := api.store.ResetFailed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	published := 0
	for _, task := range tasks {
		if err := api.queue.PublishTask(c.Request.Context(), task); err != nil {
			api.logger.WithTaskID(task.ID).WithError(err).Warn("failed to publish reset task")
			continue
		}
		published++
	}

	api.logger.Infof("reset %d failed tasks to pending, republished %d", len(tasks), published)
	c.JSON(http.StatusOK, gin.H{"reset": len(tasks), "published": published})
}

func (api *API) deleteTask(c *gin.Context) {
	id := c.Param("id")

	if err := api.store.DeleteTask(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Progress snapshots expire on their own; deleting now just keeps
	// reads consistent with the task's absence.
	if err := api.progress.DeleteProgress(c.Request.Context(), id); err != nil {
		api.logger.WithTaskID(id).WithError(err).Debug("failed to delete progress snapshot")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted", "task_id": id})
}

// getConfig publishes the active video defaults and styles so task
// creators and workers agree on blur geometry without sharing a config
// file.
func (api *API) getConfig(c *gin.Context) {
	styles := make([]gin.H, 0, len(api.cfg.Styles))
	for _, style := range api.cfg.Styles {
		styles = append(styles, gin.H{
			"name":        style.Name,
			"description": style.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"video": gin.H{
			"blur_height":     api.cfg.Video.BlurHeight,
			"blur_y":          api.cfg.Video.BlurY,
			"blur_sigma":      api.cfg.Video.BlurSigma,
			"subtitle_margin": api.cfg.Video.SubtitleMargin,
			"font_name":       api.cfg.Video.FontName,
		},
		"tts": gin.H{
			"voice": api.cfg.TTS.Voice,
		},
		"styles": styles,
	})
}

func parseIntDefault(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min {
		return def
	}
	if value > max {
		return max
	}
	return value
}
