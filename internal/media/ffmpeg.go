// Package media wraps the ffmpeg and ffprobe binaries for every video
// and audio operation the pipeline performs: probing, audio extraction,
// segment trimming, narration compositing, and final concatenation.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
)

// ProcessingError is a failed media operation, carrying the tool's
// diagnostic output.
type ProcessingError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v, stderr: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// FFmpeg wraps ffmpeg and ffprobe invocations.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	logger      *logging.Logger
}

// NewFFmpeg creates an FFmpeg wrapper from the video configuration.
// Empty paths fall back to binaries on PATH. logger may be nil.
func NewFFmpeg(cfg config.VideoConfig, logger *logging.Logger) *FFmpeg {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// MediaInfo holds metadata extracted by ffprobe.
type MediaInfo struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds container-level information.
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// StreamInfo holds per-stream information.
type StreamInfo struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Probe extracts metadata from a media file.
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ProcessingError{Op: "probe", Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	var info MediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &ProcessingError{Op: "probe", Err: fmt.Errorf("failed to parse ffprobe output: %w", err)}
	}
	return &info, nil
}

// Duration returns the playable length of a media file in seconds.
func (f *FFmpeg) Duration(ctx context.Context, inputPath string) (float64, error) {
	info, err := f.Probe(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	duration, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, &ProcessingError{Op: "probe", Err: fmt.Errorf("no duration for %s: %w", inputPath, err)}
	}
	return duration, nil
}

// AudioDuration is Duration under the name the synthesis layer expects.
func (f *FFmpeg) AudioDuration(ctx context.Context, inputPath string) (float64, error) {
	return f.Duration(ctx, inputPath)
}

// extractAudioArgs builds the argument list for audio extraction.
func extractAudioArgs(videoPath, outputPath string, sampleRate int, mono bool) []string {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
	}
	if mono {
		args = append(args, "-ac", "1")
	}
	return append(args, outputPath)
}

// ExtractAudio pulls the audio track out of a video as uncompressed
// PCM, the input format transcription backends want.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, outputPath string, sampleRate int, mono bool) error {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &ProcessingError{Op: "audio extraction", Err: err}
	}
	return f.run(ctx, "audio extraction", extractAudioArgs(videoPath, outputPath, sampleRate, mono))
}

// run executes ffmpeg with the given arguments, converting a non-zero
// exit into a ProcessingError with the captured diagnostics.
func (f *FFmpeg) run(ctx context.Context, op string, args []string) error {
	f.logger.Debugf("Running %s: %s %s", op, f.ffmpegPath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	f.logger.LogExternalCall("ffmpeg", op, time.Since(start), err)
	if err != nil {
		return &ProcessingError{Op: op, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}
