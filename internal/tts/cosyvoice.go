package tts

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

// CosyVoiceSynthesizer talks to a CosyVoice API server. The server
// takes a form POST with the text and speaker and answers with WAV
// bytes.
type CosyVoiceSynthesizer struct {
	baseURL    string
	voice      string
	sampleRate int
	maxChars   int
	httpClient *http.Client
	prober     DurationProber
	logger     *logging.Logger
}

// NewCosyVoiceSynthesizer creates a CosyVoice backed synthesizer.
// logger may be nil.
func NewCosyVoiceSynthesizer(cfg config.TTSConfig, prober DurationProber, logger *logging.Logger) *CosyVoiceSynthesizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CosyVoiceSynthesizer{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		voice:      cfg.Voice,
		sampleRate: cfg.SampleRate,
		maxChars:   cfg.MaxSubtitleChars,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		prober:     prober,
		logger:     logger,
	}
}

// Synthesize renders text through the CosyVoice server, writing
// outputPath.wav and outputPath.srt.
func (s *CosyVoiceSynthesizer) Synthesize(ctx context.Context, text, outputPath string) (*models.TTSResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errorf("empty text")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, errorf("failed to create output directory: %v", err)
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("spk", s.voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/tts", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	s.logger.LogExternalCall("tts", "synthesize", time.Since(start), err)
	if err != nil {
		return nil, errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audioPath := outputPath + ".wav"
	audio, err := os.Create(audioPath)
	if err != nil {
		return nil, errorf("failed to create audio file: %v", err)
	}
	if _, err := io.Copy(audio, resp.Body); err != nil {
		audio.Close()
		return nil, errorf("failed to write audio: %v", err)
	}
	if err := audio.Close(); err != nil {
		return nil, errorf("failed to write audio: %v", err)
	}

	duration, err := s.prober.AudioDuration(ctx, audioPath)
	if err != nil {
		return nil, errorf("failed to measure audio: %v", err)
	}

	subtitlePath := outputPath + ".srt"
	if err := WriteSubtitles(text, duration, s.maxChars, subtitlePath); err != nil {
		return nil, errorf("failed to write subtitles: %v", err)
	}

	s.logger.Debugf("CosyVoice synthesized %.2fs of audio to %s", duration, audioPath)
	return &models.TTSResult{
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		Duration:     duration,
		SampleRate:   s.sampleRate,
	}, nil
}
