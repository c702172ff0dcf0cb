package narration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/pkg/models"
)

func TestFillGaps(t *testing.T) {
	script := []models.NarrationSegment{
		narr("Opening hook.", 0, 4),
		narr("The twist.", 10, 14),
	}

	filled := FillGaps(script, 30, 0.5)
	require.Len(t, filled, 4)

	assert.Equal(t, models.SegmentNarration, filled[0].Kind)
	assert.Equal(t, models.SegmentPassThrough, filled[1].Kind)
	assert.InDelta(t, 4.0, filled[1].StartTime, 0.001)
	assert.InDelta(t, 10.0, filled[1].EndTime, 0.001)
	assert.Equal(t, models.SegmentNarration, filled[2].Kind)
	assert.Equal(t, models.SegmentPassThrough, filled[3].Kind)
	assert.InDelta(t, 14.0, filled[3].StartTime, 0.001)
	assert.InDelta(t, 30.0, filled[3].EndTime, 0.001)
}

func TestFillGapsSortsInput(t *testing.T) {
	script := []models.NarrationSegment{
		narr("The twist.", 10, 14),
		narr("Opening hook.", 0, 4),
	}

	filled := FillGaps(script, 14, 0.5)
	require.Len(t, filled, 3)
	assert.Equal(t, "Opening hook.", filled[0].Content)
	assert.Equal(t, models.SegmentPassThrough, filled[1].Kind)
	assert.Equal(t, "The twist.", filled[2].Content)

	// The caller's slice stays in its original order.
	assert.Equal(t, "The twist.", script[0].Content)
}

func TestFillGapsMixedKinds(t *testing.T) {
	script := []models.NarrationSegment{
		narr("He walks in.", 0, 3),
		clip(3, 11),
		narr("Nobody knows him.", 60, 63),
		clip(63, 75),
	}

	filled := FillGaps(script, 100, 0.5)
	require.Len(t, filled, 6)

	assert.Equal(t, models.SegmentPassThrough, filled[2].Kind)
	assert.InDelta(t, 11.0, filled[2].StartTime, 0.001)
	assert.InDelta(t, 60.0, filled[2].EndTime, 0.001)
	assert.Equal(t, models.SegmentPassThrough, filled[5].Kind)
	assert.InDelta(t, 75.0, filled[5].StartTime, 0.001)
	assert.InDelta(t, 100.0, filled[5].EndTime, 0.001)
}

func TestFillGapsIgnoresSmallGaps(t *testing.T) {
	script := []models.NarrationSegment{
		narr("Opening hook.", 0, 4),
		narr("Right after.", 4.3, 8),
	}

	filled := FillGaps(script, 8.2, 0.5)
	assert.Len(t, filled, 2)
}

func TestFillGapsIdempotent(t *testing.T) {
	script := []models.NarrationSegment{
		narr("Opening hook.", 0, 4),
		narr("The twist.", 10, 14),
	}

	once := FillGaps(script, 30, 0.5)
	twice := FillGaps(once, 30, 0.5)
	assert.Equal(t, once, twice)
}

func TestFillGapsEmpty(t *testing.T) {
	assert.Empty(t, FillGaps(nil, 30, 0.5))
}

func TestFillGapsLeadingGap(t *testing.T) {
	script := []models.NarrationSegment{narr("Late start.", 5, 10)}

	filled := FillGaps(script, 10, 0.5)
	require.Len(t, filled, 2)
	assert.Equal(t, models.SegmentPassThrough, filled[0].Kind)
	assert.InDelta(t, 0.0, filled[0].StartTime, 0.001)
	assert.InDelta(t, 5.0, filled[0].EndTime, 0.001)
}
