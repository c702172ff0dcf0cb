// Package asr transcribes extracted audio into SRT subtitles, either
// through a transcription HTTP service or a local whisper.cpp binary.
package asr

import (
	"context"
	"fmt"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// Supported backends.
const (
	BackendAPI     = "api"
	BackendWhisper = "whisper"
)

// Error is a transcription failure.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

func errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Transcriber converts an audio file into subtitles.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*srt.File, error)
}

// NewTranscriber builds the transcriber selected by the configuration.
func NewTranscriber(cfg config.ASRConfig, logger *logging.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case BackendAPI:
		return NewAPITranscriber(cfg, logger), nil
	case BackendWhisper:
		return NewWhisperTranscriber(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown asr backend %q", cfg.Backend)
	}
}
