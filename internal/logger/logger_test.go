package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should write console output to the configured writer", func(t *testing.T) {
		var buf bytes.Buffer

		logger, err := New(Config{Level: "info", Console: true, Output: &buf})
		require.NoError(t, err)
		defer logger.Close()

		zl := logger.Zerolog()
		zl.Info().Str("turn_id", "t-1").Msg("Turn completed")

		assert.Contains(t, buf.String(), `"turn_id":"t-1"`)
		assert.Contains(t, buf.String(), `"message":"Turn completed"`)
	})

	t.Run("should write to a file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "agentcore.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Debug().Msg("debug message")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "debug message")
	})

	t.Run("should redact secrets", func(t *testing.T) {
		var buf bytes.Buffer

		logger, err := New(Config{Level: "info", Console: true, Redaction: true, Output: &buf})
		require.NoError(t, err)
		defer logger.Close()
		assert.NotNil(t, logger.redactor)

		zl := logger.Zerolog()
		zl.Info().Str("key", "sk-test123456789abcdefghijklmnopqrstuvwxyz").Msg("Provider configured")

		assert.Contains(t, buf.String(), "[REDACTED]")
		assert.NotContains(t, buf.String(), "sk-test123456789abcdef")
	})

	t.Run("should fall back to info on an unknown level", func(t *testing.T) {
		logger, err := New(Config{Level: "chatty", Output: &bytes.Buffer{}})
		require.NoError(t, err)
		defer logger.Close()

		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
	})

	t.Run("should install the global logger", func(t *testing.T) {
		var buf bytes.Buffer

		logger, err := New(Config{Level: "warn", Console: true, Output: &buf})
		require.NoError(t, err)
		defer logger.Close()

		log.Warn().Msg("from global")

		assert.Contains(t, buf.String(), "from global")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}

func TestLoggerComponent(t *testing.T) {
	t.Run("should tag child loggers with the component", func(t *testing.T) {
		var buf bytes.Buffer

		logger, err := New(Config{Level: "info", Console: true, Output: &buf})
		require.NoError(t, err)
		defer logger.Close()

		child := logger.Component("gateway")
		child.Info().Msg("started")

		assert.Contains(t, buf.String(), `"component":"gateway"`)
	})

	t.Run("should attach service and version", func(t *testing.T) {
		var buf bytes.Buffer

		logger, err := New(Config{Level: "info", Console: true, Output: &buf, Service: "agentcore", Version: "0.1.0"})
		require.NoError(t, err)
		defer logger.Close()

		child := logger.Component("cli")
		child.Info().Msg("ready")

		assert.Contains(t, buf.String(), `"service":"agentcore"`)
		assert.Contains(t, buf.String(), `"version":"0.1.0"`)
	})
}
