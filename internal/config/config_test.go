package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Scanner.Lookahead)
	assert.Equal(t, 3, cfg.Dispatcher.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Dispatcher.RetryDelay)
	assert.Equal(t, "fixed", cfg.Dispatcher.Backoff)
	assert.Equal(t, 10*time.Second, cfg.Dispatcher.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "reminders:stream", cfg.Redis.StreamKey)
	assert.Equal(t, time.UTC, cfg.Time.Canonical())
	assert.Equal(t, time.UTC, cfg.Time.Display())
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"SCAN_INTERVAL":         "15s",
		"SCAN_LOOKAHEAD":        "5m",
		"DISPATCH_MAX_ATTEMPTS": "5",
		"DISPATCH_RETRY_DELAY":  "2s",
		"DISPATCH_BACKOFF":      "exponential",
		"DATABASE_DRIVER":       "postgres",
		"DATABASE_DSN":          "postgres://localhost/tasks",
		"DISPLAY_TZ":            "Europe/Moscow",
		"TELEGRAM_TOKEN":        "123:abc",
	})
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.Lookahead)
	assert.Equal(t, 5, cfg.Dispatcher.MaxAttempts)
	assert.Equal(t, "exponential", cfg.Dispatcher.Backoff)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "Europe/Moscow", cfg.Time.Display().String())
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"zero attempts":    {"DISPATCH_MAX_ATTEMPTS": "0"},
		"unknown driver":   {"DATABASE_DRIVER": "mysql"},
		"unknown backoff":  {"DISPATCH_BACKOFF": "linear"},
		"bad duration":     {"SCAN_INTERVAL": "soon"},
		"bad canonical tz": {"CANONICAL_TZ": "Mars/Olympus"},
		"bad log level":    {"LOG_LEVEL": "loud"},
	}

	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}

func TestUnknownDisplayZoneFallsBackToUTC(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"DISPLAY_TZ": "Nowhere/Special"})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Time.Display())
}
