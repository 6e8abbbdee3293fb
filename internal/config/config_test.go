package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viral-strategy-ai/internal/media"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GEMINI_API_KEY", " key ")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, StorageFile, cfg.StorageDriver)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, media.DefaultPolicy(), cfg.MediaPolicy())
	assert.Equal(t, "gemini-3-pro-preview", cfg.Models().Deep)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.EqualError(t, err, "GEMINI_API_KEY is required")
}

func TestLoadBot_RequiresToken(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := LoadBot()
	assert.EqualError(t, err, "TELEGRAM_BOT_TOKEN is required")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gemini_api_key: from-file
gemini_model: file-model
frame_count: 7
upload_poll_interval: 500ms
upload_poll_timeout: 3m
storage_driver: memory
history_limit: 10
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("UPLOAD_POLL_INTERVAL_MS", "")
	t.Setenv("UPLOAD_POLL_TIMEOUT_SECONDS", "")
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("FRAME_COUNT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GeminiAPIKey)
	assert.Equal(t, "file-model", cfg.GeminiModel)
	assert.Equal(t, 3, cfg.FrameCount)
	assert.Equal(t, 500*time.Millisecond, cfg.UploadPollInterval)
	assert.Equal(t, 3*time.Minute, cfg.UploadPollTimeout)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 10, cfg.HistoryLimit)
}

func TestLoad_StorageDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GEMINI_API_KEY", "key")

	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/viral?sslmode=disable")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)

	t.Setenv("STORAGE_DRIVER", "redis")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_EnvUnits(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("UPLOAD_POLL_INTERVAL_MS", "250")
	t.Setenv("MEDIA_GROUP_DEBOUNCE_MS", "900")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "60")
	t.Setenv("MAX_FILE_BYTES", "100")
	t.Setenv("INLINE_LIMIT_BYTES", "500")
	t.Setenv("MAX_CONCURRENT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.UploadPollInterval)
	assert.Equal(t, 900*time.Millisecond, cfg.MediaGroupDebounce)
	assert.Equal(t, time.Minute, cfg.RequestTimeout)
	assert.Equal(t, int64(100), cfg.MaxFileBytes)
	assert.Equal(t, int64(100), cfg.InlineLimitBytes)
	assert.Equal(t, 1, cfg.MaxConcurrent)
}
