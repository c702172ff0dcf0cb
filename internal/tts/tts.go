// Package tts synthesizes narration speech, either through a CosyVoice
// HTTP server or the edge-tts command line tool. Each synthesized clip
// comes with an SRT file timing the spoken text so it can be burned
// into the video.
package tts

import (
	"context"
	"fmt"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// Supported backends.
const (
	BackendCosyVoice = "cosyvoice"
	BackendEdge      = "edge"
)

// PresetVoices are the speaker names accepted by both backends. They
// are CosyVoice speaker identifiers; the edge backend maps them to its
// own neural voices.
var PresetVoices = []string{
	"中文女",
	"中文男",
	"日语男",
	"粤语女",
	"英文女",
	"英文男",
	"韩语女",
}

// edgeVoices maps preset speakers to edge-tts voice names.
var edgeVoices = map[string]string{
	"中文女": "zh-CN-XiaoxiaoNeural",
	"中文男": "zh-CN-YunxiNeural",
	"日语男": "ja-JP-KeitaNeural",
	"粤语女": "zh-HK-HiuGaaiNeural",
	"英文女": "en-US-JennyNeural",
	"英文男": "en-US-GuyNeural",
	"韩语女": "ko-KR-SunHiNeural",
}

// Error is a speech synthesis failure.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("speech synthesis failed: %s", e.Message)
}

func errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// DurationProber measures the playable length of an audio file.
// *media.FFmpeg satisfies it.
type DurationProber interface {
	AudioDuration(ctx context.Context, path string) (float64, error)
}

// Synthesizer renders text to speech. outputPath is a path prefix: the
// backend appends its audio extension and .srt for the subtitle file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) (*models.TTSResult, error)
}

// NewSynthesizer builds the synthesizer selected by the configuration.
func NewSynthesizer(cfg config.TTSConfig, prober DurationProber, logger *logging.Logger) (Synthesizer, error) {
	switch cfg.Backend {
	case BackendCosyVoice:
		return NewCosyVoiceSynthesizer(cfg, prober, logger), nil
	case BackendEdge:
		return NewEdgeSynthesizer(cfg, prober, logger), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}
