package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiTextModel)
	assert.Equal(t, "gemini-2.0-flash-preview-image-generation", cfg.GeminiImageModel)
	assert.Equal(t, 60*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, "chat_jobs", cfg.RabbitQueue)
	assert.False(t, cfg.RabbitEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AI_PROVIDER", "OpenRouter")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "5")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg := Load()
	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, "openrouter", cfg.AIProvider)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 50, cfg.WorkerConcurrency)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER: postgres\nRATE_LIMIT_QPS: 9\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATE_LIMIT_QPS", "3")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3, cfg.RateLimitQPS, "environment wins over the file")
}
