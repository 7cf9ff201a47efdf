package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-service/internal/config"
)

func TestNewLevelFallback(t *testing.T) {
	log := New(config.LoggingConfig{Level: "chatty"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log = New(config.LoggingConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewFormatter(t *testing.T) {
	log := New(config.LoggingConfig{Format: "json"})
	require.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.True(t, log.Formatter.(*logrus.JSONFormatter).DisableHTMLEscape)

	log = New(config.LoggingConfig{Format: "text"})
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.log")
	log := New(config.LoggingConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})

	log.WithField("key", "CN>US:1234.56").Info("tariff superseded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"CN>US:1234.56"`)
	assert.Contains(t, string(data), "tariff superseded")
}
