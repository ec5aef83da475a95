package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromYAML(t *testing.T) {
	// Arrange
	t.Setenv("TELEGRAM_BOT_TOKEN", "token-from-env")
	path := writeConfigFile(t, `
club:
  name: Boulderclub Basel
storage:
  database_path: /tmp/club.db
api:
  port: 9090
  allowed_origins:
    - https://kasse.example.org
telegram:
  bot_token: ${TELEGRAM_BOT_TOKEN}
observability:
  logging:
    level: debug
`)

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Boulderclub Basel", cfg.Club.Name)
	assert.Equal(t, "/tmp/club.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, []string{"https://kasse.example.org"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "token-from-env", cfg.Telegram.BotToken, "env vars must be expanded")
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.True(t, cfg.TelegramConfigured())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "club:\n  name: ''\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "K-Lab", cfg.Club.Name)
	assert.Equal(t, "kassenwart.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.NotEmpty(t, cfg.API.AllowedOrigins)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.False(t, cfg.TelegramConfigured())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CLUB_NAME", "Boulderclub Basel")
	t.Setenv("KASSENWART_DB_PATH", "/data/club.db")
	t.Setenv("KASSENWART_API_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadFromEnv()

	assert.Equal(t, "Boulderclub Basel", cfg.Club.Name)
	assert.Equal(t, "/data/club.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7070, cfg.API.Port)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
}

func TestLoadFromEnv_BadPortFallsBack(t *testing.T) {
	t.Setenv("KASSENWART_API_PORT", "not-a-port")

	cfg := LoadFromEnv()

	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadOrEnv_FallsBackWhenFileMissing(t *testing.T) {
	t.Setenv("CLUB_NAME", "Boulderclub Basel")

	cfg := LoadOrEnv(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, "Boulderclub Basel", cfg.Club.Name)
}
