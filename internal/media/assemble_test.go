package media

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/pkg/models"
)

func TestTrimArgs(t *testing.T) {
	cfg := config.DefaultVideoConfig()
	args := trimArgs("in.mp4", "out.mp4", 12.5, 4.25, cfg)
	assert.Equal(t, []string{
		"-y",
		"-ss", "12.5",
		"-i", "in.mp4",
		"-t", "4.25",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-ar", "24000",
		"-ac", "2",
		"-b:a", "128k",
		"out.mp4",
	}, args)
}

func TestEscapeSubtitlePath(t *testing.T) {
	assert.Equal(t, "/tmp/subs.srt", escapeSubtitlePath("/tmp/subs.srt"))
	assert.Equal(t, "C\\:/clips/subs.srt", escapeSubtitlePath(`C:\clips\subs.srt`))
}

func TestNarrationFilter(t *testing.T) {
	filter := narrationFilter("/tmp/n.srt", config.DefaultVideoConfig())
	assert.Equal(t,
		"[0:v]crop=iw:185:0:1413,gblur=sigma=20[blur];"+
			"[0:v][blur]overlay=0:1413,"+
			"subtitles='/tmp/n.srt':force_style='FontName=Noto Sans CJK SC,MarginV=65'[vout];"+
			"[0:a]volume=0.3[a0];"+
			"[1:a]volume=1[a1];"+
			"[a0][a1]amix=inputs=2:duration=longest:dropout_transition=0[aout]",
		filter)
}

func TestNarrationFilterOverrides(t *testing.T) {
	cfg := withDefaults(config.VideoConfig{BlurHeight: 200, BlurY: 1000, SubtitleMargin: 80})
	filter := narrationFilter("/tmp/n.srt", cfg)
	assert.Contains(t, filter, "crop=iw:200:0:1000")
	assert.Contains(t, filter, "overlay=0:1000")
	assert.Contains(t, filter, "MarginV=80")
}

func TestNarrationFilterMutedOriginal(t *testing.T) {
	cfg := config.DefaultVideoConfig()
	cfg.OriginalVolume = 0

	filter := narrationFilter("/tmp/n.srt", withDefaults(cfg))
	assert.Contains(t, filter, "volume=0[a0]", "a configured zero mix gain must survive defaulting")
}

func TestTrimArgsLosslessCRF(t *testing.T) {
	cfg := config.DefaultVideoConfig()
	cfg.CRF = 0

	args := trimArgs("in.mp4", "out.mp4", 0, 1, withDefaults(cfg))
	idx := slices.Index(args, "-crf")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "0", args[idx+1])
}

func TestAssembleSegmentMissingNarrationFiles(t *testing.T) {
	f := NewFFmpeg(config.VideoConfig{}, nil)
	a := NewAssembler(f, config.VideoConfig{}, nil)

	dir := t.TempDir()
	segment := models.NarrationSegment{
		Kind:      models.SegmentNarration,
		Content:   "missing everything",
		StartTime: 0,
		EndTime:   3,
		AudioPath: filepath.Join(dir, "absent.wav"),
	}

	_, err := a.AssembleSegment(context.Background(), "in.mp4", segment, dir, dir, 2)
	require.Error(t, err)
	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Error(), "segment 2: audio not found")
}
