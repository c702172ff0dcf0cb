package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Anning01/playlet-clip/pkg/models"
)

const taskColumns = `id, style, video_path, subtitle_path, output_path,
       blur_height, blur_y, subtitle_margin, status, error_msg,
       worker_id, started_at, completed_at, created_at, updated_at`

// ErrTaskNotFound is returned when an operation targets a missing task.
var ErrTaskNotFound = errors.New("task not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health reports whether the backing database answers.
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID, &task.Style, &task.VideoPath, &task.SubtitlePath, &task.OutputPath,
		&task.BlurHeight, &task.BlurY, &task.SubtitleMargin, &task.Status, &task.ErrorMsg,
		&task.WorkerID, &task.StartedAt, &task.CompletedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTasks inserts new tasks, skipping any whose style, video path
// and subtitle path already exist. Resubmitting the same drama folder
// is the normal workflow, so duplicates are expected rather than an
// error. Returns the created tasks and the number skipped.
func (r *Repository) CreateTasks(ctx context.Context, tasks []*models.Task) ([]*models.Task, int, error) {
	query := `
		INSERT INTO tasks (id, style, video_path, subtitle_path, output_path,
		                   blur_height, blur_y, subtitle_margin, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (style, video_path, subtitle_path) DO NOTHING
		RETURNING created_at, updated_at
	`

	var created []*models.Task
	skipped := 0
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		if task.Status == "" {
			task.Status = models.StatusPending
		}

		err := r.db.Pool.QueryRow(ctx, query,
			task.ID, task.Style, task.VideoPath, task.SubtitlePath, task.OutputPath,
			task.BlurHeight, task.BlurY, task.SubtitleMargin, task.Status,
		).Scan(&task.CreatedAt, &task.UpdatedAt)

		if errors.Is(err, pgx.ErrNoRows) {
			skipped++
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("failed to create task: %w", err)
		}
		created = append(created, task)
	}

	return created, skipped, nil
}

// ClaimNextPending atomically claims the oldest pending task for a
// worker, moving it to the first pipeline status. Returns nil when no
// pending task exists. Concurrent workers never claim the same row.
func (r *Repository) ClaimNextPending(ctx context.Context, workerID string) (*models.Task, error) {
	query := `
		WITH next AS (
			SELECT id FROM tasks
			WHERE status = $2
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks
		SET status = $3, worker_id = $1, started_at = now(), updated_at = now()
		FROM next
		WHERE tasks.id = next.id
		RETURNING ` + taskColumns

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query,
		workerID, models.StatusPending, models.StatusExtractingAudio))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	return task, nil
}

// StartTask moves a specific pending task into the pipeline, stamping
// the worker and start time. Returns nil when the task no longer exists
// or is not pending anymore, which happens when a queue delivery races
// a pull-mode claim of the same task.
func (r *Repository) StartTask(ctx context.Context, id, workerID string) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET status = $3, worker_id = $2, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING ` + taskColumns

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query,
		id, workerID, models.StatusExtractingAudio, models.StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start task: %w", err)
	}

	return task, nil
}

// GetTask retrieves a task by ID
func (r *Repository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves tasks with pagination, newest first. An empty
// status lists every task.
func (r *Repository) ListTasks(ctx context.Context, status models.TaskStatus, limit, offset int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateTaskStatus records a status transition. Terminal statuses stamp
// completed_at; a new output path overwrites only when non-empty.
func (r *Repository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, errorMsg, outputPath string) error {
	query := `
		UPDATE tasks
		SET status = $2, error_msg = $3,
		    output_path = CASE WHEN $4 <> '' THEN $4 ELSE output_path END,
		    completed_at = CASE WHEN $2 IN ($5, $6) THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, errorMsg, outputPath,
		models.StatusCompleted, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// ResetFailed returns every failed task to pending and reports the
// reset tasks. The original queue messages were dead-lettered on
// failure, so callers must publish the returned tasks again or no
// worker will ever see them. Error, worker and timing fields are
// cleared.
func (r *Repository) ResetFailed(ctx context.Context) ([]*models.Task, error) {
	query := `
		UPDATE tasks
		SET status = $1, error_msg = '', worker_id = '',
		    started_at = NULL, completed_at = NULL, updated_at = now()
		WHERE status = $2
		RETURNING ` + taskColumns

	rows, err := r.db.Pool.Query(ctx, query, models.StatusPending, models.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to reset tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask deletes a task record
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteFailed removes every failed task.
func (r *Repository) DeleteFailed(ctx context.Context) (int, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE status = $1`, models.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountByStatus returns task counts keyed by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status models.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
