package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockd/attendance-engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPath_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(480), cfg.ExpectedMinutesPerDay)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.True(t, cfg.Signature.PastMonthsOnly)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "attendance.db", cfg.Database)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
expected_minutes_per_day: 420
default_timezone: Europe/Madrid
port: 9090
signature:
  past_months_only: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(420), cfg.ExpectedMinutesPerDay)
	assert.Equal(t, "Europe/Madrid", cfg.DefaultTimezone)
	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Signature.PastMonthsOnly)
	// Untouched keys keep their defaults.
	assert.Equal(t, "attendance.db", cfg.Database)
}

func TestLoad_MissingFile_Fails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues_Rejected(t *testing.T) {
	cases := map[string]string{
		"zero expected minutes": "expected_minutes_per_day: 0",
		"day over 24h":          "expected_minutes_per_day: 2000",
		"unknown timezone":      "default_timezone: Mars/Olympus",
		"bad port":              "port: 70000",
		"malformed yaml":        "port: [",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
