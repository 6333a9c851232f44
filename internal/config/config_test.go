package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deepchat", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "https://api.deepseek.com", cfg.DeepSeek.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.DeepSeek.Model)
	assert.Equal(t, 0.7, cfg.DeepSeek.Temperature)
	assert.Equal(t, 1000, cfg.DeepSeek.MaxTokens)
	assert.Empty(t, cfg.DeepSeek.APIKey, "missing model credential is not fatal at load time")
	assert.Equal(t, "chat.turn.mirror", cfg.RabbitMQ.MirrorQueue)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("DEEPSEEK_BASE_URL", "https://example.test")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MYSQL_DB", "deepchat_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.DeepSeek.APIKey)
	assert.Equal(t, "https://example.test", cfg.DeepSeek.BaseURL)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Contains(t, cfg.MySQLDSN(), "deepchat_test")
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}
