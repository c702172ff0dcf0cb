package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/internal/pipeline"
	"github.com/Anning01/playlet-clip/pkg/models"
)

type statusUpdate struct {
	id         string
	status     models.TaskStatus
	errorMsg   string
	outputPath string
}

type fakeWorkerStore struct {
	claimed  *models.Task
	claimErr error
	updates  []statusUpdate
}

func (s *fakeWorkerStore) StartTask(_ context.Context, id, workerID string) (*models.Task, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if s.claimed != nil {
		s.claimed.WorkerID = workerID
		s.claimed.Status = models.StatusExtractingAudio
	}
	return s.claimed, nil
}

func (s *fakeWorkerStore) UpdateTaskStatus(_ context.Context, id string, status models.TaskStatus, errorMsg, outputPath string) error {
	s.updates = append(s.updates, statusUpdate{id, status, errorMsg, outputPath})
	return nil
}

func (s *fakeWorkerStore) lastUpdate() statusUpdate {
	return s.updates[len(s.updates)-1]
}

type fakeSink struct {
	snapshots []models.TaskProgress
}

func (s *fakeSink) SetProgress(_ context.Context, _ string, progress models.TaskProgress) error {
	s.snapshots = append(s.snapshots, progress)
	return nil
}

type fakeObjects struct {
	downloads   []string
	uploads     []string
	downloadErr error
	uploadErr   error
}

func (o *fakeObjects) DownloadFile(_ context.Context, objectName, filePath string) error {
	if o.downloadErr != nil {
		return o.downloadErr
	}
	o.downloads = append(o.downloads, objectName)
	return os.WriteFile(filePath, []byte("data"), 0o644)
}

func (o *fakeObjects) UploadFile(_ context.Context, objectName, _ string) error {
	if o.uploadErr != nil {
		return o.uploadErr
	}
	o.uploads = append(o.uploads, objectName)
	return nil
}

type fakeRunner struct {
	result    *models.ProcessResult
	gotReq    pipeline.Request
	snapshots []models.TaskProgress
}

func (r *fakeRunner) Process(_ context.Context, req pipeline.Request) *models.ProcessResult {
	r.gotReq = req
	if req.Observer != nil {
		for _, snapshot := range r.snapshots {
			req.Observer(snapshot)
		}
	}
	return r.result
}

type fakeNotifier struct {
	completed []*models.Task
	failed    []*models.Task
}

func (n *fakeNotifier) NotifyTaskCompleted(_ context.Context, task *models.Task, _ *models.ProcessResult) {
	n.completed = append(n.completed, task)
}

func (n *fakeNotifier) NotifyTaskFailed(_ context.Context, task *models.Task, _ *models.ProcessResult) {
	n.failed = append(n.failed, task)
}

func newTestWorker(t *testing.T) (*Worker, *fakeWorkerStore, *fakeSink, *fakeObjects, *fakeRunner, *fakeNotifier) {
	t.Helper()

	store := &fakeWorkerStore{}
	sink := &fakeSink{}
	objects := &fakeObjects{}
	runner := &fakeRunner{result: &models.ProcessResult{Success: true, OutputPath: "/out/final.mp4"}}
	notifier := &fakeNotifier{}

	w := &Worker{
		id:       "worker-test",
		store:    store,
		progress: sink,
		objects:  objects,
		runner:   runner,
		notify:   notifier,
		workDir:  t.TempDir(),
		logger:   logging.NewNopLogger(),
	}

	return w, store, sink, objects, runner, notifier
}

func TestHandleTaskSuccess(t *testing.T) {
	w, store, _, _, runner, notifier := newTestWorker(t)
	store.claimed = &models.Task{
		ID:        "task-1",
		Style:     "悬疑",
		VideoPath: "/media/ep01.mp4",
		Status:    models.StatusPending,
	}
	runner.result = &models.ProcessResult{
		Success:       true,
		OutputPath:    "/out/ep01_悬疑_clip.mp4",
		SegmentsCount: 7,
		Duration:      42.5,
	}

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.NoError(t, err)
	assert.Equal(t, "/media/ep01.mp4", runner.gotReq.VideoPath)
	assert.Equal(t, "悬疑", runner.gotReq.Style)

	last := store.lastUpdate()
	assert.Equal(t, models.StatusCompleted, last.status)
	assert.Equal(t, "/out/ep01_悬疑_clip.mp4", last.outputPath)

	require.Len(t, notifier.completed, 1)
	assert.Equal(t, models.StatusCompleted, notifier.completed[0].Status)
	assert.Empty(t, notifier.failed)
}

func TestHandleTaskAlreadyClaimed(t *testing.T) {
	w, store, _, _, _, notifier := newTestWorker(t)
	store.claimed = nil

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.NoError(t, err)
	assert.Empty(t, store.updates)
	assert.Empty(t, notifier.completed)
}

func TestHandleTaskPipelineFailure(t *testing.T) {
	w, store, _, _, runner, notifier := newTestWorker(t)
	store.claimed = &models.Task{ID: "task-1", VideoPath: "/media/ep01.mp4"}
	runner.result = &models.ProcessResult{
		Success:      false,
		ErrorMessage: "narration validation failed after 10 attempts",
	}

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "narration validation failed")

	last := store.lastUpdate()
	assert.Equal(t, models.StatusFailed, last.status)
	assert.Equal(t, "narration validation failed after 10 attempts", last.errorMsg)

	require.Len(t, notifier.failed, 1)
	assert.Equal(t, models.StatusFailed, notifier.failed[0].Status)
	assert.Empty(t, notifier.completed)
}

func TestHandleTaskStagesStoredSources(t *testing.T) {
	w, store, _, objects, runner, _ := newTestWorker(t)
	store.claimed = &models.Task{
		ID:           "task-1",
		VideoPath:    "s3://sources/drama/ep01.mp4",
		SubtitlePath: "s3://sources/drama/ep01.srt",
	}

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"sources/drama/ep01.mp4", "sources/drama/ep01.srt"}, objects.downloads)

	// The pipeline must see local files, not object paths.
	assert.Equal(t, filepath.Join(w.workDir, "sources", "task-1", "ep01.mp4"), runner.gotReq.VideoPath)
	assert.Equal(t, filepath.Join(w.workDir, "sources", "task-1", "ep01.srt"), runner.gotReq.SubtitlePath)

	// Staged sources are temporary and must not survive the task.
	_, statErr := os.Stat(filepath.Join(w.workDir, "sources", "task-1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleTaskDownloadFailure(t *testing.T) {
	w, store, _, objects, _, notifier := newTestWorker(t)
	store.claimed = &models.Task{ID: "task-1", VideoPath: "s3://sources/ep01.mp4"}
	objects.downloadErr = os.ErrDeadlineExceeded

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, store.lastUpdate().status)
	require.Len(t, notifier.failed, 1)
}

func TestHandleTaskUploadsStoredOutput(t *testing.T) {
	w, store, _, objects, runner, _ := newTestWorker(t)
	store.claimed = &models.Task{
		ID:         "task-1",
		VideoPath:  "/media/ep01.mp4",
		OutputPath: "s3://outputs/task-1/final.mp4",
	}
	runner.result = &models.ProcessResult{
		Success:       true,
		OutputPath:    "/out/ep01_clip.mp4",
		SubtitlesPath: "/out/ep01_clip_subtitles.srt",
		NarrationPath: "/out/ep01_clip_narration.json",
	}

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.NoError(t, err)

	// A stored destination means the pipeline renders to its local
	// default and the worker uploads the result.
	assert.Empty(t, runner.gotReq.OutputPath)
	assert.Equal(t, []string{
		"outputs/task-1/ep01_clip.mp4",
		"outputs/task-1/ep01_clip_subtitles.srt",
		"outputs/task-1/ep01_clip_narration.json",
	}, objects.uploads)
	assert.Equal(t, "s3://outputs/task-1/ep01_clip.mp4", store.lastUpdate().outputPath)
}

func TestHandleTaskUploadFailureFailsTask(t *testing.T) {
	w, store, _, objects, runner, notifier := newTestWorker(t)
	store.claimed = &models.Task{
		ID:         "task-1",
		VideoPath:  "/media/ep01.mp4",
		OutputPath: "s3://outputs/task-1/final.mp4",
	}
	runner.result = &models.ProcessResult{Success: true, OutputPath: "/out/ep01_clip.mp4"}
	objects.uploadErr = os.ErrDeadlineExceeded

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, store.lastUpdate().status)
	require.Len(t, notifier.failed, 1)
}

func TestObserverWritesProgressAndStatusChanges(t *testing.T) {
	w, store, sink, _, runner, _ := newTestWorker(t)
	store.claimed = &models.Task{ID: "task-1", VideoPath: "/media/ep01.mp4"}

	base := models.NewTaskProgress(6)
	runner.snapshots = []models.TaskProgress{
		base.Update(models.StatusExtractingAudio, 1, 0, "Extracting audio"),
		base.Update(models.StatusTranscribing, 2, 15, "Transcribing audio"),
		base.Update(models.StatusTranscribing, 2, 20, "Transcribing audio"),
		base.Update(models.StatusCompleted, 6, 100, "Completed"),
	}

	err := w.handleTask(context.Background(), &models.Task{ID: "task-1"})
	require.NoError(t, err)

	// Every snapshot is cached.
	assert.Len(t, sink.snapshots, 4)

	// Status rows are written once per transition; the terminal write
	// comes from handleTask with the output path, not from the observer.
	var statuses []models.TaskStatus
	for _, update := range store.updates {
		statuses = append(statuses, update.status)
	}
	assert.Equal(t, []models.TaskStatus{
		models.StatusExtractingAudio,
		models.StatusTranscribing,
		models.StatusCompleted,
	}, statuses)
	assert.NotEmpty(t, store.lastUpdate().outputPath)
}
