package config

import "fmt"

// ValidationError reports a config value that fails pre-flight checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks value ranges before any pipeline stage runs.
func (c *Config) Validate() error {
	if c.LLM.MaxRetries < 1 {
		return &ValidationError{Field: "llm.maxRetries", Reason: "must be at least 1"}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return &ValidationError{Field: "llm.temperature", Reason: "must be in [0, 2]"}
	}
	if c.LLM.OverlapTolerance < 0 {
		return &ValidationError{Field: "llm.overlapTolerance", Reason: "must not be negative"}
	}
	if c.LLM.RequestsPerMinute < 1 {
		return &ValidationError{Field: "llm.requestsPerMinute", Reason: "must be at least 1"}
	}

	switch c.ASR.Backend {
	case "api", "whisper":
	default:
		return &ValidationError{Field: "asr.backend", Reason: fmt.Sprintf("unknown backend %q", c.ASR.Backend)}
	}

	switch c.TTS.Backend {
	case "cosyvoice", "edge":
	default:
		return &ValidationError{Field: "tts.backend", Reason: fmt.Sprintf("unknown backend %q", c.TTS.Backend)}
	}
	if c.TTS.Speed < 0.5 || c.TTS.Speed > 2.0 {
		return &ValidationError{Field: "tts.speed", Reason: "must be in [0.5, 2.0]"}
	}
	if c.TTS.SampleRate <= 0 {
		return &ValidationError{Field: "tts.sampleRate", Reason: "must be positive"}
	}
	if c.TTS.MaxSubtitleChars < 1 {
		return &ValidationError{Field: "tts.maxSubtitleChars", Reason: "must be at least 1"}
	}

	if c.Video.BlurHeight < 0 || c.Video.BlurY < 0 {
		return &ValidationError{Field: "video.blurHeight", Reason: "blur geometry must not be negative"}
	}
	if c.Video.BlurSigma < 1 {
		return &ValidationError{Field: "video.blurSigma", Reason: "must be at least 1"}
	}
	if c.Video.OriginalVolume < 0 || c.Video.OriginalVolume > 1 {
		return &ValidationError{Field: "video.originalVolume", Reason: "must be in [0.0, 1.0]"}
	}
	if c.Video.NarrationVolume < 0 || c.Video.NarrationVolume > 2 {
		return &ValidationError{Field: "video.narrationVolume", Reason: "must be in [0.0, 2.0]"}
	}

	if c.Pipeline.MinGap < 0 {
		return &ValidationError{Field: "pipeline.minGap", Reason: "must not be negative"}
	}

	if len(c.Styles) == 0 {
		return &ValidationError{Field: "styles", Reason: "at least one style is required"}
	}
	for _, style := range c.Styles {
		if style.Name == "" {
			return &ValidationError{Field: "styles", Reason: "style name must not be empty"}
		}
	}

	return nil
}
