package asr

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// APITranscriber posts audio to a transcription HTTP service and parses
// the SRT text it returns. The endpoint follows the common
// whisper-asr-webservice shape: multipart upload, SRT selected through
// the output query parameter.
type APITranscriber struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewAPITranscriber creates an HTTP-backed transcriber. logger may be nil.
func NewAPITranscriber(cfg config.ASRConfig, logger *logging.Logger) *APITranscriber {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &APITranscriber{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// Transcribe uploads the audio file and returns the parsed subtitles.
func (t *APITranscriber) Transcribe(ctx context.Context, audioPath string) (*srt.File, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, errorf("audio file not found: %s", audioPath)
	}
	defer audio.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", filepath.Base(audioPath))
	if err != nil {
		return nil, errorf("failed to build upload: %v", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, errorf("failed to read audio: %v", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errorf("failed to build upload: %v", err)
	}

	url := t.baseURL + "/asr?encode=true&task=transcribe&output=srt"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	t.logger.LogExternalCall("asr", "transcribe", time.Since(start), err)
	if err != nil {
		return nil, errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errorf("failed to read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	file := srt.Parse(string(respBody))
	t.logger.Infof("Transcription returned %d segments", len(file.Segments))
	return file, nil
}
