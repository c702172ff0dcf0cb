package narration

import (
	"sort"

	"github.com/Anning01/playlet-clip/pkg/models"
)

// DefaultMinGap is the smallest stretch of uncovered video worth turning
// into a pass-through clip. Anything shorter is dropped at the cut.
const DefaultMinGap = 0.5

// FillGaps returns the script with every uncovered stretch of the video
// longer than minGap filled by a pass-through video segment, including
// the stretch after the last scripted span. The input slice is not
// modified. Running FillGaps on its own output changes nothing.
// minGap <= 0 falls back to DefaultMinGap.
func FillGaps(segments []models.NarrationSegment, videoDuration, minGap float64) []models.NarrationSegment {
	if len(segments) == 0 {
		return segments
	}
	if minGap <= 0 {
		minGap = DefaultMinGap
	}

	sorted := make([]models.NarrationSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	filled := make([]models.NarrationSegment, 0, len(sorted)+1)
	cursor := 0.0
	for _, seg := range sorted {
		if seg.StartTime-cursor > minGap {
			filled = append(filled, models.NarrationSegment{
				Kind:      models.SegmentPassThrough,
				StartTime: cursor,
				EndTime:   seg.StartTime,
			})
		}
		filled = append(filled, seg)
		if seg.EndTime > cursor {
			cursor = seg.EndTime
		}
	}

	if videoDuration-cursor > minGap {
		filled = append(filled, models.NarrationSegment{
			Kind:      models.SegmentPassThrough,
			StartTime: cursor,
			EndTime:   videoDuration,
		})
	}
	return filled
}
