package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentKind(t *testing.T) {
	assert.True(t, SegmentNarration.Valid())
	assert.True(t, SegmentPassThrough.Valid())
	assert.False(t, SegmentKind("commentary").Valid())
	assert.False(t, SegmentKind("").Valid())
}

func TestNarrationSegment(t *testing.T) {
	seg := NarrationSegment{
		Kind:      SegmentNarration,
		Content:   "Watch closely.",
		StartTime: 1.5,
		EndTime:   4.0,
	}

	assert.True(t, seg.IsNarration())
	assert.InDelta(t, 2.5, seg.Duration(), 0.0001)
	assert.Equal(t, "00:00:01,500 --> 00:00:04,000", seg.TimeRange())

	pass := NarrationSegment{Kind: SegmentPassThrough, StartTime: 4, EndTime: 10}
	assert.False(t, pass.IsNarration())
}

func TestNarrationSegmentJSON(t *testing.T) {
	seg := NarrationSegment{Kind: SegmentPassThrough, StartTime: 0, EndTime: 5}

	data, err := json.Marshal(seg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"video"`)

	var back NarrationSegment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, SegmentPassThrough, back.Kind)
}

func TestTaskStatus(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, status := range TaskStatuses {
			assert.True(t, status.Valid(), "status %s", status)
		}
		assert.False(t, TaskStatus("in_progress").Valid())
	})

	t.Run("Terminal", func(t *testing.T) {
		assert.True(t, StatusCompleted.Terminal())
		assert.True(t, StatusFailed.Terminal())
		assert.False(t, StatusPending.Terminal())
		assert.False(t, StatusProcessingVideo.Terminal())
	})

	t.Run("Parse", func(t *testing.T) {
		status, err := ParseTaskStatus("failed")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, status)

		_, err = ParseTaskStatus("bogus")
		assert.Error(t, err)
	})
}

func TestTaskProgressUpdate(t *testing.T) {
	initial := NewTaskProgress(6)
	assert.Equal(t, StatusPending, initial.Status)
	assert.Equal(t, 6, initial.TotalSteps)

	updated := initial.Update(StatusTranscribing, 2, 25, "transcribing audio")

	// The original snapshot must be untouched.
	assert.Equal(t, StatusPending, initial.Status)
	assert.Zero(t, initial.Progress)

	assert.Equal(t, StatusTranscribing, updated.Status)
	assert.Equal(t, 2, updated.CurrentStep)
	assert.InDelta(t, 25.0, updated.Progress, 0.0001)
	assert.Equal(t, "transcribing audio", updated.Message)
	assert.Equal(t, initial.StartedAt, updated.StartedAt)
	assert.False(t, updated.UpdatedAt.Before(initial.UpdatedAt))
}

func TestTaskProgressClamp(t *testing.T) {
	p := NewTaskProgress(6)
	assert.InDelta(t, 100.0, p.Update(StatusCompleted, 6, 140, "done").Progress, 0.0001)
	assert.Zero(t, p.Update(StatusFailed, 1, -3, "failed").Progress)
}

func TestTaskJSONOmitsEmpty(t *testing.T) {
	task := Task{
		ID:        "t1",
		Style:     "sarcastic",
		VideoPath: "/videos/ep01.mp4",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "error_msg")
	assert.NotContains(t, string(data), "worker_id")
	assert.Contains(t, string(data), `"status":"pending"`)
}
