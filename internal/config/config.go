package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("PLAYLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Styles) == 0 {
		config.Styles = DefaultStyles()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "playlet")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.progressTTL", "24h")

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "playlet")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "playlet-clip")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Auth defaults (empty secret disables API auth)
	viper.SetDefault("auth.jwtSecret", "")

	// Webhook defaults
	viper.SetDefault("webhook.urls", []string{})
	viper.SetDefault("webhook.secret", "")
	viper.SetDefault("webhook.timeout", "30s")
	viper.SetDefault("webhook.maxRetries", 3)

	// LLM defaults
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.maxRetries", 10)
	viper.SetDefault("llm.requestTimeout", "120s")
	viper.SetDefault("llm.requestsPerMinute", 30)
	viper.SetDefault("llm.overlapTolerance", 0.5)

	// ASR defaults
	viper.SetDefault("asr.backend", "api")
	viper.SetDefault("asr.apiURL", "http://localhost:9000")
	viper.SetDefault("asr.whisperPath", "whisper-cli")
	viper.SetDefault("asr.whisperModel", "models/ggml-base.bin")
	viper.SetDefault("asr.requestTimeout", "300s")

	// TTS defaults
	viper.SetDefault("tts.backend", "cosyvoice")
	viper.SetDefault("tts.apiURL", "http://localhost:8080")
	viper.SetDefault("tts.edgeTTSPath", "edge-tts")
	viper.SetDefault("tts.voice", "中文女")
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.sampleRate", 22050)
	viper.SetDefault("tts.maxSubtitleChars", 15)
	viper.SetDefault("tts.requestTimeout", "60s")

	// Video defaults
	video := DefaultVideoConfig()
	viper.SetDefault("video.blurHeight", video.BlurHeight)
	viper.SetDefault("video.blurY", video.BlurY)
	viper.SetDefault("video.blurSigma", video.BlurSigma)
	viper.SetDefault("video.subtitleMargin", video.SubtitleMargin)
	viper.SetDefault("video.fontName", video.FontName)
	viper.SetDefault("video.videoCodec", video.VideoCodec)
	viper.SetDefault("video.audioCodec", video.AudioCodec)
	viper.SetDefault("video.preset", video.Preset)
	viper.SetDefault("video.crf", video.CRF)
	viper.SetDefault("video.audioSampleRate", video.AudioSampleRate)
	viper.SetDefault("video.audioBitrate", video.AudioBitrate)
	viper.SetDefault("video.originalVolume", video.OriginalVolume)
	viper.SetDefault("video.narrationVolume", video.NarrationVolume)
	viper.SetDefault("video.ffmpegPath", video.FFmpegPath)
	viper.SetDefault("video.ffprobePath", video.FFprobePath)

	// Pipeline defaults
	viper.SetDefault("pipeline.workDir", "data/temp")
	viper.SetDefault("pipeline.outputDir", "data/output")
	viper.SetDefault("pipeline.keepTemp", false)
	viper.SetDefault("pipeline.minGap", 0.5)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}
