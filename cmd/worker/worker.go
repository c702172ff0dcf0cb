package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/metrics"
	"github.com/Anning01/playlet-clip/internal/pipeline"
	"github.com/Anning01/playlet-clip/internal/storage"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// taskStore is the slice of the repository the worker uses.
type taskStore interface {
	StartTask(ctx context.Context, id, workerID string) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, errorMsg, outputPath string) error
}

// progressSink receives live pipeline snapshots.
type progressSink interface {
	SetProgress(ctx context.Context, taskID string, progress models.TaskProgress) error
}

// objectStore moves task sources and outputs between the worker
// filesystem and object storage.
type objectStore interface {
	DownloadFile(ctx context.Context, objectName, filePath string) error
	UploadFile(ctx context.Context, objectName, filePath string) error
}

// clipRunner runs one clip task end to end.
type clipRunner interface {
	Process(ctx context.Context, req pipeline.Request) *models.ProcessResult
}

// completionNotifier reports terminal task states to webhook receivers.
type completionNotifier interface {
	NotifyTaskCompleted(ctx context.Context, task *models.Task, result *models.ProcessResult)
	NotifyTaskFailed(ctx context.Context, task *models.Task, result *models.ProcessResult)
}

// Worker consumes clip tasks from the queue and drives them through the
// pipeline. Collaborators are interfaces so tests can substitute fakes.
type Worker struct {
	id       string
	store    taskStore
	progress progressSink
	objects  objectStore
	runner   clipRunner
	notify   completionNotifier
	workDir  string
	logger   *logging.Logger
}

// handleTask processes one queue delivery. A nil return acks the
// message; an error dead-letters it for operator inspection.
func (w *Worker) handleTask(ctx context.Context, task *models.Task) error {
	logger := w.logger.WithTaskID(task.ID)

	claimed, err := w.store.StartTask(ctx, task.ID, w.id)
	if err != nil {
		return fmt.Errorf("failed to claim task: %w", err)
	}
	if claimed == nil {
		// Another worker pulled this task via the API before the
		// delivery arrived. Nothing to do.
		logger.Info("task no longer pending, skipping")
		return nil
	}

	metrics.TasksInProgress.Inc()
	defer metrics.TasksInProgress.Dec()

	logger.WithWorkerID(w.id).Infof("processing %s clip of %s", claimed.Style, claimed.VideoPath)

	videoPath, subtitlePath, stagedDir, err := w.stageSources(ctx, claimed)
	if stagedDir != "" {
		defer os.RemoveAll(stagedDir)
	}
	if err != nil {
		return w.failTask(ctx, claimed, &models.ProcessResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("failed to stage sources: %v", err),
		})
	}

	// A stored output path means the pipeline renders locally and the
	// worker uploads afterwards.
	localOutput := claimed.OutputPath
	if storage.IsObject(localOutput) {
		localOutput = ""
	}

	result := w.runner.Process(ctx, pipeline.Request{
		TaskID:         claimed.ID,
		VideoPath:      videoPath,
		SubtitlePath:   subtitlePath,
		Style:          claimed.Style,
		OutputPath:     localOutput,
		BlurHeight:     claimed.BlurHeight,
		BlurY:          claimed.BlurY,
		SubtitleMargin: claimed.SubtitleMargin,
		Observer:       w.observeProgress(claimed.ID),
	})

	if !result.Success {
		return w.failTask(ctx, claimed, result)
	}

	finalOutput := result.OutputPath
	if storage.IsObject(claimed.OutputPath) {
		uploaded, err := w.uploadOutputs(ctx, claimed.ID, result)
		if err != nil {
			return w.failTask(ctx, claimed, &models.ProcessResult{
				Success:      false,
				ErrorMessage: err.Error(),
				Duration:     result.Duration,
			})
		}
		finalOutput = uploaded
	}

	if err := w.store.UpdateTaskStatus(ctx, claimed.ID, models.StatusCompleted, "", finalOutput); err != nil {
		logger.WithError(err).Error("failed to record completion")
		return err
	}

	claimed.Status = models.StatusCompleted
	claimed.OutputPath = finalOutput
	w.notify.NotifyTaskCompleted(ctx, claimed, result)

	logger.Infof("task completed in %.1fs with %d segments", result.Duration, result.SegmentsCount)
	return nil
}

// failTask records the failure and notifies receivers. The returned
// error dead-letters the queue message.
func (w *Worker) failTask(ctx context.Context, task *models.Task, result *models.ProcessResult) error {
	if err := w.store.UpdateTaskStatus(ctx, task.ID, models.StatusFailed, result.ErrorMessage, ""); err != nil {
		w.logger.WithTaskID(task.ID).WithError(err).Error("failed to record failure")
	}

	task.Status = models.StatusFailed
	task.ErrorMsg = result.ErrorMessage
	w.notify.NotifyTaskFailed(ctx, task, result)

	return fmt.Errorf("task %s failed: %s", task.ID, result.ErrorMessage)
}

// observeProgress returns the pipeline observer for a task. Every
// snapshot lands in the cache; status changes are also written to the
// task row, except terminal ones, which handleTask records together
// with the error or output path.
func (w *Worker) observeProgress(taskID string) func(models.TaskProgress) {
	var lastStatus models.TaskStatus
	return func(p models.TaskProgress) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := w.progress.SetProgress(ctx, taskID, p); err != nil {
			w.logger.WithTaskID(taskID).WithError(err).Debug("failed to cache progress")
		}

		if p.Status == lastStatus || p.Status.Terminal() || p.Status == models.StatusPending {
			return
		}
		if err := w.store.UpdateTaskStatus(ctx, taskID, p.Status, "", ""); err != nil {
			w.logger.WithTaskID(taskID).WithError(err).Debug("failed to record status change")
		}
		lastStatus = p.Status
	}
}

// stageSources makes the task's video and subtitle available on the
// local filesystem, downloading stored objects into a per-task folder.
// The folder path is returned even on error so the caller can clean up
// partial downloads.
func (w *Worker) stageSources(ctx context.Context, task *models.Task) (videoPath, subtitlePath, stagedDir string, err error) {
	videoPath = task.VideoPath
	subtitlePath = task.SubtitlePath

	if !storage.IsObject(videoPath) && !storage.IsObject(subtitlePath) {
		return videoPath, subtitlePath, "", nil
	}

	stagedDir = filepath.Join(w.workDir, "sources", task.ID)
	if err := os.MkdirAll(stagedDir, 0o755); err != nil {
		return "", "", "", fmt.Errorf("failed to create staging dir: %w", err)
	}

	if storage.IsObject(videoPath) {
		local := filepath.Join(stagedDir, filepath.Base(storage.ObjectKey(videoPath)))
		if err := w.download(ctx, storage.ObjectKey(videoPath), local); err != nil {
			return "", "", stagedDir, fmt.Errorf("failed to download video: %w", err)
		}
		videoPath = local
	}

	if storage.IsObject(subtitlePath) {
		local := filepath.Join(stagedDir, filepath.Base(storage.ObjectKey(subtitlePath)))
		if err := w.download(ctx, storage.ObjectKey(subtitlePath), local); err != nil {
			return "", "", stagedDir, fmt.Errorf("failed to download subtitles: %w", err)
		}
		subtitlePath = local
	}

	return videoPath, subtitlePath, stagedDir, nil
}

func (w *Worker) download(ctx context.Context, key, local string) error {
	err := w.objects.DownloadFile(ctx, key, local)
	status := "success"
	var size int64
	if err != nil {
		status = "error"
	} else if fi, statErr := os.Stat(local); statErr == nil {
		size = fi.Size()
	}
	metrics.RecordStorageOperation("download", status, size, "download")
	return err
}

func (w *Worker) upload(ctx context.Context, key, local string) error {
	err := w.objects.UploadFile(ctx, key, local)
	status := "success"
	var size int64
	if err != nil {
		status = "error"
	} else if fi, statErr := os.Stat(local); statErr == nil {
		size = fi.Size()
	}
	metrics.RecordStorageOperation("upload", status, size, "upload")
	return err
}

// uploadOutputs pushes the finished video and its artifacts to object
// storage. The video upload must succeed; artifact uploads are best
// effort. Returns the stored path of the video.
func (w *Worker) uploadOutputs(ctx context.Context, taskID string, result *models.ProcessResult) (string, error) {
	key := storage.OutputKey(taskID, filepath.Base(result.OutputPath))
	if err := w.upload(ctx, key, result.OutputPath); err != nil {
		return "", fmt.Errorf("failed to upload output: %w", err)
	}

	for _, artifact := range []string{result.SubtitlesPath, result.NarrationPath} {
		if artifact == "" {
			continue
		}
		artifactKey := storage.OutputKey(taskID, filepath.Base(artifact))
		if err := w.upload(ctx, artifactKey, artifact); err != nil {
			w.logger.WithTaskID(taskID).WithError(err).Warn("failed to upload artifact")
		}
	}

	return storage.ObjectPrefix + key, nil
}
