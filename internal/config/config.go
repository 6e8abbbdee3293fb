package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/strategy"
)

// Config is assembled from defaults, then the optional YAML file named by CONFIG_FILE, then
// environment variables. Later sources win.
type Config struct {
	TelegramToken string `yaml:"telegram_bot_token"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`

	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`

	PreferIPv4 bool `yaml:"prefer_ipv4"`

	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	GeminiBaseURL            string `yaml:"gemini_base_url"`
	GeminiAPIVersion         string `yaml:"gemini_api_version"`
	GeminiModel              string `yaml:"gemini_model"`
	GeminiDeepModel          string `yaml:"gemini_deep_model"`
	GeminiDeepThinkingBudget int    `yaml:"gemini_deep_thinking_budget"`
	GeminiRPM                int    `yaml:"gemini_rpm"`

	WebAddr string `yaml:"web_addr"`

	MaxFileBytes       int64         `yaml:"max_file_bytes"`
	InlineLimitBytes   int64         `yaml:"inline_limit_bytes"`
	FrameCount         int           `yaml:"frame_count"`
	UploadPollInterval time.Duration `yaml:"upload_poll_interval"`
	UploadPollTimeout  time.Duration `yaml:"upload_poll_timeout"`
	FFmpegPath         string        `yaml:"ffmpeg_path"`
	FFprobePath        string        `yaml:"ffprobe_path"`

	HistoryLimit  int    `yaml:"history_limit"`
	StorageDriver string `yaml:"storage_driver"`
	DataDir       string `yaml:"data_dir"`
	DatabaseURL   string `yaml:"database_url"`

	MediaGroupDebounce time.Duration `yaml:"media_group_debounce"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
}

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

func Defaults() Config {
	return Config{
		LogLevel:                 "info",
		PreferIPv4:               true,
		HTTPTimeout:              180 * time.Second,
		RequestTimeout:           15 * time.Minute,
		GeminiBaseURL:            "https://generativelanguage.googleapis.com",
		GeminiAPIVersion:         "v1beta",
		GeminiModel:              strategy.DefaultModels().Default,
		GeminiDeepModel:          strategy.DefaultModels().Deep,
		GeminiDeepThinkingBudget: strategy.DefaultModels().DeepThinkingBudget,
		WebAddr:                  ":8080",
		MaxFileBytes:             media.DefaultMaxFileBytes,
		InlineLimitBytes:         media.DefaultInlineLimitBytes,
		FrameCount:               media.DefaultFrameCount,
		UploadPollInterval:       media.DefaultPollInterval,
		UploadPollTimeout:        media.DefaultPollTimeout,
		FFmpegPath:               "ffmpeg",
		FFprobePath:              "ffprobe",
		HistoryLimit:             50,
		StorageDriver:            StorageFile,
		DataDir:                  "data",
		MediaGroupDebounce:       1200 * time.Millisecond,
		MaxConcurrent:            4,
	}
}

// Load reads the configuration for a surface that only needs the model API.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadBot is Load plus the bot token requirement.
func LoadBot() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.PreferIPv4 = getEnvBool("PREFER_IPV4", c.PreferIPv4)

	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT_SECONDS", time.Second, c.HTTPTimeout)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT_SECONDS", time.Second, c.RequestTimeout)

	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.GeminiAPIVersion = getEnv("GEMINI_API_VERSION", c.GeminiAPIVersion)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiDeepModel = getEnv("GEMINI_DEEP_MODEL", c.GeminiDeepModel)
	c.GeminiDeepThinkingBudget = getEnvInt("GEMINI_DEEP_THINKING_BUDGET", c.GeminiDeepThinkingBudget)
	c.GeminiRPM = getEnvInt("GEMINI_RPM", c.GeminiRPM)

	c.WebAddr = getEnv("WEB_ADDR", c.WebAddr)

	c.MaxFileBytes = getEnvInt64("MAX_FILE_BYTES", c.MaxFileBytes)
	c.InlineLimitBytes = getEnvInt64("INLINE_LIMIT_BYTES", c.InlineLimitBytes)
	c.FrameCount = getEnvInt("FRAME_COUNT", c.FrameCount)
	c.UploadPollInterval = getEnvDuration("UPLOAD_POLL_INTERVAL_MS", time.Millisecond, c.UploadPollInterval)
	c.UploadPollTimeout = getEnvDuration("UPLOAD_POLL_TIMEOUT_SECONDS", time.Second, c.UploadPollTimeout)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.FFprobePath = getEnv("FFPROBE_PATH", c.FFprobePath)

	c.HistoryLimit = getEnvInt("HISTORY_LIMIT", c.HistoryLimit)
	c.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", c.StorageDriver))
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.MediaGroupDebounce = getEnvDuration("MEDIA_GROUP_DEBOUNCE_MS", time.Millisecond, c.MediaGroupDebounce)
	c.MaxConcurrent = getEnvInt("MAX_CONCURRENT", c.MaxConcurrent)
}

func (c *Config) validate() error {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)

	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}

	switch c.StorageDriver {
	case StorageFile, StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.InlineLimitBytes > c.MaxFileBytes {
		c.InlineLimitBytes = c.MaxFileBytes
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.HistoryLimit < 1 {
		c.HistoryLimit = 1
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 180 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Minute
	}
	return nil
}

func (c Config) MediaPolicy() media.Policy {
	return media.Policy{
		MaxFileBytes:     c.MaxFileBytes,
		InlineLimitBytes: c.InlineLimitBytes,
		FrameCount:       c.FrameCount,
		PollInterval:     c.UploadPollInterval,
		PollTimeout:      c.UploadPollTimeout,
	}
}

func (c Config) Models() strategy.Models {
	return strategy.Models{
		Default:            c.GeminiModel,
		Deep:               c.GeminiDeepModel,
		DeepThinkingBudget: c.GeminiDeepThinkingBudget,
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, unit time.Duration, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return time.Duration(parsed) * unit
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
