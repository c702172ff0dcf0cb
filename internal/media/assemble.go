package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// ProgressFunc receives percentage and message updates during long
// assembly operations.
type ProgressFunc func(pct float64, message string)

// Assembler turns timeline segments into encoded clips and joins them
// into the final video. All clips share one set of codec parameters so
// concatenation never has to reconcile formats.
type Assembler struct {
	ffmpeg *FFmpeg
	cfg    config.VideoConfig
	logger *logging.Logger
}

// withDefaults fills zero-valued codec and compositing fields with the
// standard parameters. CRF and the mix volumes are left as given: zero
// is a legal setting for them (lossless encode, muted track), and
// config.Load supplies their defaults.
func withDefaults(cfg config.VideoConfig) config.VideoConfig {
	if cfg.VideoCodec == "" {
		cfg.VideoCodec = "libx264"
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = "aac"
	}
	if cfg.Preset == "" {
		cfg.Preset = "fast"
	}
	if cfg.AudioSampleRate == 0 {
		cfg.AudioSampleRate = 24000
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = "128k"
	}
	if cfg.BlurHeight == 0 {
		cfg.BlurHeight = 185
	}
	if cfg.BlurY == 0 {
		cfg.BlurY = 1413
	}
	if cfg.BlurSigma == 0 {
		cfg.BlurSigma = 20
	}
	if cfg.SubtitleMargin == 0 {
		cfg.SubtitleMargin = 65
	}
	if cfg.FontName == "" {
		cfg.FontName = "Noto Sans CJK SC"
	}
	return cfg
}

// NewAssembler creates an Assembler. Zero-valued codec and compositing
// fields fall back to the standard parameters, except CRF and the mix
// volumes, where zero is meaningful. logger may be nil.
func NewAssembler(ffmpeg *FFmpeg, cfg config.VideoConfig, logger *logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Assembler{ffmpeg: ffmpeg, cfg: withDefaults(cfg), logger: logger}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// trimArgs builds the argument list for cutting one segment. Segments
// are re-encoded rather than stream-copied: copying starts on the
// nearest keyframe and leaves timestamps that drift when concatenated.
func trimArgs(videoPath, outputPath string, start, duration float64, cfg config.VideoConfig) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(start),
		"-i", videoPath,
		"-t", formatSeconds(duration),
		"-c:v", cfg.VideoCodec,
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-c:a", cfg.AudioCodec,
		"-ar", strconv.Itoa(cfg.AudioSampleRate),
		"-ac", "2",
		"-b:a", cfg.AudioBitrate,
		outputPath,
	}
}

// TrimSegment cuts [start, start+duration) out of the source video.
func (a *Assembler) TrimSegment(ctx context.Context, videoPath, outputPath string, start, duration float64) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &ProcessingError{Op: "video trimming", Err: err}
	}
	return a.ffmpeg.run(ctx, "video trimming", trimArgs(videoPath, outputPath, start, duration, a.cfg))
}

// escapeSubtitlePath prepares a path for use inside the subtitles
// filter: forward slashes and escaped colons.
func escapeSubtitlePath(path string) string {
	escaped := strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(escaped, ":", "\\:")
}

// narrationFilter builds the filter graph that blurs the original
// subtitle band, burns the narration subtitles over it, and mixes the
// narration audio over the attenuated original track.
func narrationFilter(subtitlePath string, cfg config.VideoConfig) string {
	return fmt.Sprintf(
		"[0:v]crop=iw:%d:0:%d,gblur=sigma=%d[blur];"+
			"[0:v][blur]overlay=0:%d,"+
			"subtitles='%s':force_style='FontName=%s,MarginV=%d'[vout];"+
			"[0:a]volume=%s[a0];"+
			"[1:a]volume=%s[a1];"+
			"[a0][a1]amix=inputs=2:duration=longest:dropout_transition=0[aout]",
		cfg.BlurHeight, cfg.BlurY, cfg.BlurSigma,
		cfg.BlurY,
		escapeSubtitlePath(subtitlePath), cfg.FontName, cfg.SubtitleMargin,
		formatSeconds(cfg.OriginalVolume),
		formatSeconds(cfg.NarrationVolume),
	)
}

// AddNarration composites narration audio and burned subtitles onto a
// clip. The original audio stays underneath at reduced volume.
func (a *Assembler) AddNarration(ctx context.Context, videoPath, audioPath, subtitlePath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &ProcessingError{Op: "adding narration", Err: err}
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-filter_complex", narrationFilter(subtitlePath, a.cfg),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", a.cfg.VideoCodec,
		"-preset", a.cfg.Preset,
		"-c:a", a.cfg.AudioCodec,
		"-ar", strconv.Itoa(a.cfg.AudioSampleRate),
		"-ac", "2",
		outputPath,
	}
	return a.ffmpeg.run(ctx, "adding narration", args)
}

// AssembleSegment renders one timeline entry into a clip under
// outputDir. Narration entries are trimmed then composited; the
// intermediate trim is removed once consumed.
func (a *Assembler) AssembleSegment(ctx context.Context, sourceVideo string, segment models.NarrationSegment, outputDir, tempDir string, index int) (string, error) {
	outputPath := filepath.Join(outputDir, fmt.Sprintf("segment_%03d.mp4", index))

	if !segment.IsNarration() {
		if err := a.TrimSegment(ctx, sourceVideo, outputPath, segment.StartTime, segment.Duration()); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	if _, err := os.Stat(segment.AudioPath); err != nil {
		return "", &ProcessingError{Op: "adding narration", Err: fmt.Errorf("segment %d: audio not found at %s", index, segment.AudioPath)}
	}
	if _, err := os.Stat(segment.SubtitlePath); err != nil {
		return "", &ProcessingError{Op: "adding narration", Err: fmt.Errorf("segment %d: subtitle not found at %s", index, segment.SubtitlePath)}
	}

	trimmedPath := filepath.Join(tempDir, fmt.Sprintf("seg_%d_trimmed.mp4", index))
	if err := a.TrimSegment(ctx, sourceVideo, trimmedPath, segment.StartTime, segment.Duration()); err != nil {
		return "", err
	}
	defer os.Remove(trimmedPath)

	if err := a.AddNarration(ctx, trimmedPath, segment.AudioPath, segment.SubtitlePath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// AssembleTimeline renders every segment and concatenates the clips
// into outputPath. Per-segment clips are removed after the final video
// exists. progress may be nil.
func (a *Assembler) AssembleTimeline(ctx context.Context, sourceVideo string, segments []models.NarrationSegment, outputPath, tempDir string, progress ProgressFunc) error {
	if len(segments) == 0 {
		return &ProcessingError{Op: "video assembly", Err: fmt.Errorf("no segments to assemble")}
	}

	segmentsDir := filepath.Join(tempDir, "segments")
	processingDir := filepath.Join(tempDir, "processing")
	for _, dir := range []string{segmentsDir, processingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ProcessingError{Op: "video assembly", Err: err}
		}
	}

	total := len(segments)
	clipPaths := make([]string, 0, total)
	for i, segment := range segments {
		if progress != nil {
			progress(float64(i)/float64(total)*80, fmt.Sprintf("assembling segment %d/%d", i+1, total))
		}
		clipPath, err := a.AssembleSegment(ctx, sourceVideo, segment, segmentsDir, processingDir, i)
		if err != nil {
			return err
		}
		clipPaths = append(clipPaths, clipPath)
		a.logger.Infof("Assembled segment %d/%d", i+1, total)
	}

	if progress != nil {
		progress(80, "concatenating segments")
	}
	if err := a.ffmpeg.Concat(ctx, clipPaths, outputPath, a.cfg); err != nil {
		return err
	}

	for _, clipPath := range clipPaths {
		os.Remove(clipPath)
	}
	if progress != nil {
		progress(100, "video assembly finished")
	}
	return nil
}
