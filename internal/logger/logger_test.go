package logger

import (
	"path/filepath"
	"testing"

	"github.com/nirholas/specbridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("console output stays off stdout", func(t *testing.T) {
		logger, err := NewLogger(&config.LoggingConfig{Level: "info", Format: "console"})
		require.NoError(t, err)
		defer func() { _ = logger.Sync() }()
		logger.Info("hello")
		// stdout carries the protocol stream in stdio mode, so a logger
		// configured without a file must write to stderr only.
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		_, err := NewLogger(&config.LoggingConfig{Level: "chatty"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chatty")
	})

	t.Run("file output creates the directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "specbridge.log")
		logger, err := NewLogger(&config.LoggingConfig{
			Level:          "debug",
			Format:         "json",
			DisableConsole: true,
			OutputPath:     path,
		})
		require.NoError(t, err)
		logger.Info("hello")
		require.NoError(t, logger.Sync())
		assert.FileExists(t, path)
	})
}
