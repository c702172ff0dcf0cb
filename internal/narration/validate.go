package narration

import (
	"fmt"

	"github.com/Anning01/playlet-clip/pkg/models"
)

// endTolerance is how far past the end of the source video a segment may
// reach before it is rejected. Models routinely round the final span up
// by a fraction of a second.
const endTolerance = 1.0

// DefaultOverlapTolerance is how much a segment may start before the
// previous one ends. Adjacent spans produced from SRT timings often
// touch or slightly cross.
const DefaultOverlapTolerance = 0.5

// ValidationError reports a script that does not satisfy the sequence
// rules. It is recoverable: the generator feeds it back to the model and
// asks for a corrected script.
type ValidationError struct {
	Index  int // segment index, -1 when the whole response is at fault
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("segment %d: %s", e.Index, e.Reason)
	}
	return e.Reason
}

// ValidateSegments checks a parsed script against the sequence rules:
// known segment types, non-empty narration text, sane time ordering, and
// spans that stay within the video. overlapTolerance <= 0 falls back to
// DefaultOverlapTolerance.
func ValidateSegments(segments []models.NarrationSegment, videoDuration, overlapTolerance float64) error {
	if overlapTolerance <= 0 {
		overlapTolerance = DefaultOverlapTolerance
	}
	if len(segments) == 0 {
		return &ValidationError{Index: -1, Reason: "script contains no segments"}
	}

	var prevEnd float64
	for i, seg := range segments {
		if !seg.Kind.Valid() {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("unknown segment type %q", string(seg.Kind))}
		}
		if seg.IsNarration() && seg.Content == "" {
			return &ValidationError{Index: i, Reason: "narration segment has no content"}
		}
		if seg.StartTime < 0 {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("start time %.2f is negative", seg.StartTime)}
		}
		if seg.EndTime <= seg.StartTime {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("end time %.2f is not after start time %.2f", seg.EndTime, seg.StartTime)}
		}
		if seg.EndTime > videoDuration+endTolerance {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("end time %.2f exceeds video duration %.2f", seg.EndTime, videoDuration)}
		}
		if i > 0 && seg.StartTime < prevEnd-overlapTolerance {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("start time %.2f overlaps previous end time %.2f", seg.StartTime, prevEnd)}
		}
		prevEnd = seg.EndTime
	}
	return nil
}
