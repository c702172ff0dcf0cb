package asr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// WhisperTranscriber runs a local whisper.cpp binary. The binary writes
// an SRT file next to the audio input, which is then parsed and removed.
type WhisperTranscriber struct {
	binary string
	model  string
	logger *logging.Logger
}

// NewWhisperTranscriber creates a whisper.cpp backed transcriber.
// logger may be nil.
func NewWhisperTranscriber(cfg config.ASRConfig, logger *logging.Logger) *WhisperTranscriber {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WhisperTranscriber{
		binary: cfg.WhisperPath,
		model:  cfg.WhisperModel,
		logger: logger,
	}
}

// Transcribe runs whisper over the audio file and returns the parsed
// subtitles.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*srt.File, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, errorf("audio file not found: %s", audioPath)
	}

	outputPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := []string{
		"-m", t.model,
		"-f", audioPath,
		"-osrt",
		"--output-file", outputPrefix,
	}

	t.logger.Debugf("Running %s %s", t.binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	t.logger.LogExternalCall("asr", "whisper", time.Since(start), err)
	if err != nil {
		return nil, errorf("whisper failed: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	srtPath := outputPrefix + ".srt"
	file, err := srt.Load(srtPath)
	if err != nil {
		return nil, errorf("whisper produced no subtitle file: %v", err)
	}
	defer os.Remove(srtPath)

	t.logger.Infof("Transcription returned %d segments", len(file.Segments))
	return file, nil
}
