package models

import (
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// SegmentKind distinguishes the two timeline entry kinds. The values are
// the literal tags used in the narration script protocol.
type SegmentKind string

const (
	SegmentNarration   SegmentKind = "narration"
	SegmentPassThrough SegmentKind = "video"
)

// Valid reports whether the kind is one of the two recognized tags.
func (k SegmentKind) Valid() bool {
	return k == SegmentNarration || k == SegmentPassThrough
}

// NarrationSegment is one entry of the edit timeline. Narration segments
// carry script content and, after speech synthesis, the rendered audio
// and subtitle paths. Pass-through segments are copied from the source
// video unchanged.
type NarrationSegment struct {
	Kind         SegmentKind `json:"type"`
	Content      string      `json:"content,omitempty"`
	StartTime    float64     `json:"start_time"`
	EndTime      float64     `json:"end_time"`
	AudioPath    string      `json:"audio_path,omitempty"`
	SubtitlePath string      `json:"subtitle_path,omitempty"`
}

// IsNarration reports whether the segment carries narration.
func (s NarrationSegment) IsNarration() bool {
	return s.Kind == SegmentNarration
}

// Duration returns the segment length in seconds.
func (s NarrationSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// TimeRange renders the segment timing as an SRT time range.
func (s NarrationSegment) TimeRange() string {
	return srt.FormatRange(s.StartTime, s.EndTime)
}

// TTSResult describes one synthesized narration clip.
type TTSResult struct {
	AudioPath    string  `json:"audio_path"`
	SubtitlePath string  `json:"subtitle_path,omitempty"`
	Duration     float64 `json:"duration"`
	SampleRate   int     `json:"sample_rate"`
}
