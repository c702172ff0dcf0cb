package models

import "time"

// WebhookEvent represents the payload sent to webhooks
type WebhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Webhook event types
const (
	WebhookEventTaskCompleted = "task.completed"
	WebhookEventTaskFailed    = "task.failed"
)

// TaskEvent is the data carried by task webhook events.
type TaskEvent struct {
	TaskID     string  `json:"task_id"`
	Status     string  `json:"status"`
	Style      string  `json:"style,omitempty"`
	VideoPath  string  `json:"video_path,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
	Error      string  `json:"error,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}
