package models

import "time"

// TaskProgress is a point-in-time snapshot of a pipeline run. Update
// returns a new value instead of mutating, so an observer holding a
// snapshot never sees it change underneath it.
type TaskProgress struct {
	Status      TaskStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Message     string     `json:"message"`
	CurrentStep int        `json:"current_step"`
	TotalSteps  int        `json:"total_steps"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTaskProgress creates the initial pending snapshot for a run.
func NewTaskProgress(totalSteps int) TaskProgress {
	now := time.Now().UTC()
	return TaskProgress{
		Status:     StatusPending,
		TotalSteps: totalSteps,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// Update produces the next snapshot. Progress is clamped to [0, 100].
func (p TaskProgress) Update(status TaskStatus, step int, progress float64, message string) TaskProgress {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	p.Status = status
	p.CurrentStep = step
	p.Progress = progress
	p.Message = message
	p.UpdatedAt = time.Now().UTC()
	return p
}

// ProcessResult is the terminal record of a pipeline run. Intermediate
// artifact paths are kept for debugging.
type ProcessResult struct {
	Success       bool    `json:"success"`
	OutputPath    string  `json:"output_path,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	Duration      float64 `json:"duration"`
	SegmentsCount int     `json:"segments_count"`
	SubtitlesPath string  `json:"subtitles_path,omitempty"`
	NarrationPath string  `json:"narration_path,omitempty"`
}
