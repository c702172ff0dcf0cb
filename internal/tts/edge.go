package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// edgeSampleRate is the fixed output rate of the edge-tts service.
const edgeSampleRate = 24000

// EdgeSynthesizer shells out to the edge-tts command line tool. It
// needs no API server, which makes it the fallback backend when no
// CosyVoice deployment is around.
type EdgeSynthesizer struct {
	binary   string
	voice    string
	speed    float64
	maxChars int
	prober   DurationProber
	logger   *logging.Logger
}

// NewEdgeSynthesizer creates an edge-tts backed synthesizer. logger may
// be nil.
func NewEdgeSynthesizer(cfg config.TTSConfig, prober DurationProber, logger *logging.Logger) *EdgeSynthesizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = 1.0
	}
	return &EdgeSynthesizer{
		binary:   cfg.EdgeTTSPath,
		voice:    cfg.Voice,
		speed:    speed,
		maxChars: cfg.MaxSubtitleChars,
		prober:   prober,
		logger:   logger,
	}
}

// rateString renders a speed multiplier in the signed percent form the
// edge-tts tool expects.
func rateString(speed float64) string {
	if speed >= 1.0 {
		return fmt.Sprintf("+%d%%", int((speed-1)*100))
	}
	return fmt.Sprintf("-%d%%", int((1-speed)*100))
}

// edgeVoice maps a preset speaker to an edge-tts voice name.
func edgeVoice(voice string) string {
	if mapped, ok := edgeVoices[voice]; ok {
		return mapped
	}
	return "zh-CN-YunxiNeural"
}

// Synthesize renders text through edge-tts, writing outputPath.mp3 and
// outputPath.srt. When the tool produces no usable subtitle file the
// subtitles are derived from the text and measured duration instead.
func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, outputPath string) (*models.TTSResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errorf("empty text")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, errorf("failed to create output directory: %v", err)
	}

	audioPath := outputPath + ".mp3"
	subtitlePath := outputPath + ".srt"
	args := []string{
		"--voice", edgeVoice(s.voice),
		"--rate=" + rateString(s.speed),
		"--text", text,
		"--write-media", audioPath,
		"--write-subtitles", subtitlePath,
	}

	s.logger.Debugf("Running %s %s", s.binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	s.logger.LogExternalCall("tts", "edge-tts", time.Since(start), err)
	if err != nil {
		return nil, errorf("edge-tts failed: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	duration, err := s.prober.AudioDuration(ctx, audioPath)
	if err != nil {
		return nil, errorf("failed to measure audio: %v", err)
	}

	if info, statErr := os.Stat(subtitlePath); statErr != nil || info.Size() == 0 {
		if err := WriteSubtitles(text, duration, s.maxChars, subtitlePath); err != nil {
			return nil, errorf("failed to write subtitles: %v", err)
		}
	}

	return &models.TTSResult{
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		Duration:     duration,
		SampleRate:   edgeSampleRate,
	}, nil
}
