package config

import (
	"os"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
	LLM      LLMConfig
	ASR      ASRConfig
	TTS      TTSConfig
	Video    VideoConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
	Styles   []StyleConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	ProgressTTL time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// AuthConfig holds API authentication configuration. An empty JWT
// secret leaves the API open.
type AuthConfig struct {
	JWTSecret string
}

// WebhookConfig holds completion notification configuration
type WebhookConfig struct {
	URLs       []string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
}

// LLMConfig holds completion service configuration
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxRetries        int
	RequestTimeout    time.Duration
	RequestsPerMinute int
	OverlapTolerance  float64
}

// ASRConfig holds transcription configuration
type ASRConfig struct {
	Backend        string
	APIURL         string
	WhisperPath    string
	WhisperModel   string
	RequestTimeout time.Duration
}

// TTSConfig holds speech synthesis configuration
type TTSConfig struct {
	Backend          string
	APIURL           string
	EdgeTTSPath      string
	Voice            string
	Speed            float64
	SampleRate       int
	MaxSubtitleChars int
	RequestTimeout   time.Duration
}

// VideoConfig holds segment assembly parameters. The blur band hides
// subtitles burned into the source before new ones are drawn.
type VideoConfig struct {
	BlurHeight      int
	BlurY           int
	BlurSigma       int
	SubtitleMargin  int
	FontName        string
	VideoCodec      string
	AudioCodec      string
	Preset          string
	CRF             int
	AudioSampleRate int
	AudioBitrate    string
	OriginalVolume  float64
	NarrationVolume float64
	FFmpegPath      string
	FFprobePath     string
}

// DefaultVideoConfig returns the standard encode and compositing
// parameters. Load installs these for any field the config file leaves
// unset; a value set explicitly, including zero, is kept.
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		BlurHeight:      185,
		BlurY:           1413,
		BlurSigma:       20,
		SubtitleMargin:  65,
		FontName:        "Noto Sans CJK SC",
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		Preset:          "fast",
		CRF:             23,
		AudioSampleRate: 24000,
		AudioBitrate:    "128k",
		OriginalVolume:  0.3,
		NarrationVolume: 1.0,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
	}
}

// PipelineConfig holds orchestration configuration
type PipelineConfig struct {
	WorkDir   string
	OutputDir string
	KeepTemp  bool
	MinGap    float64
}

// EnsureDirs creates the pipeline working directories.
func (c PipelineConfig) EnsureDirs() error {
	for _, dir := range []string{c.WorkDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// StyleConfig describes one narration style offered to tasks.
type StyleConfig struct {
	Name           string
	Description    string
	PromptTemplate string
}

// DefaultStyles returns the built-in narration styles.
func DefaultStyles() []StyleConfig {
	return []StyleConfig{
		{
			Name:        "sarcastic",
			Description: "Mock the drama's most absurd and contrived plot turns with irony and exaggeration, so viewers laugh first and think second.",
		},
		{
			Name:        "warm",
			Description: "Read the story in a gentle, emotional voice that draws viewers into the characters' feelings.",
		},
		{
			Name:        "suspense",
			Description: "Tease what happens next and linger on unanswered questions, keeping viewers on edge until the final scene.",
		},
	}
}

// FindStyle returns the named style, or nil when unknown.
func (c *Config) FindStyle(name string) *StyleConfig {
	for i := range c.Styles {
		if c.Styles[i].Name == name {
			return &c.Styles[i]
		}
	}
	return nil
}
