package models

import (
	"fmt"
	"time"
)

// TaskStatus tracks a task through the processing state machine.
type TaskStatus string

const (
	StatusPending             TaskStatus = "pending"
	StatusExtractingAudio     TaskStatus = "extracting_audio"
	StatusTranscribing        TaskStatus = "transcribing"
	StatusGeneratingNarration TaskStatus = "generating_narration"
	StatusSynthesizingSpeech  TaskStatus = "synthesizing_speech"
	StatusProcessingVideo     TaskStatus = "processing_video"
	StatusCompleted           TaskStatus = "completed"
	StatusFailed              TaskStatus = "failed"
)

// TaskStatuses lists every status in pipeline order.
var TaskStatuses = []TaskStatus{
	StatusPending,
	StatusExtractingAudio,
	StatusTranscribing,
	StatusGeneratingNarration,
	StatusSynthesizingSpeech,
	StatusProcessingVideo,
	StatusCompleted,
	StatusFailed,
}

// Valid reports whether the status is a known state.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the state machine.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseTaskStatus converts a string to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

// Task is one queued unit of work: a source video to turn into a
// narrated edit. Blur geometry can be overridden per task because
// source videos differ in where their burned-in subtitles sit.
type Task struct {
	ID             string     `json:"id" db:"id"`
	Style          string     `json:"style" db:"style"`
	VideoPath      string     `json:"video_path" db:"video_path"`
	SubtitlePath   string     `json:"subtitle_path,omitempty" db:"subtitle_path"`
	OutputPath     string     `json:"output_path,omitempty" db:"output_path"`
	BlurHeight     int        `json:"blur_height" db:"blur_height"`
	BlurY          int        `json:"blur_y" db:"blur_y"`
	SubtitleMargin int        `json:"subtitle_margin" db:"subtitle_margin"`
	Status         TaskStatus `json:"status" db:"status"`
	ErrorMsg       string     `json:"error_msg,omitempty" db:"error_msg"`
	WorkerID       string     `json:"worker_id,omitempty" db:"worker_id"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
