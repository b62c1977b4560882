package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfigDefaults verifies that NewConfig works without a config file.
func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Port)
	assert.Equal(t, "log_only", cfg.Notifiers.Mode)
	assert.True(t, cfg.Authorization.AutoGrant)
	assert.Equal(t, 5, cfg.Worker.Count)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Grace)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
}

// TestNewConfigFromEnv verifies that environment variables override defaults.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", ":9090")
	t.Setenv("LOGGER_LEVEL", "debug")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("SWEEPER_GRACE", "45s")
	t.Setenv("AUTHORIZATION_AUTO_GRANT", "false")
	t.Setenv("NOTIFIERS_TELEGRAM_CHAT_ID", "42")

	cfg, err := NewConfig()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 2, cfg.Worker.Count)
	assert.Equal(t, 45*time.Second, cfg.Sweeper.Grace)
	assert.False(t, cfg.Authorization.AutoGrant)
	assert.Equal(t, int64(42), cfg.Notifiers.Telegram.ChatID)
}
