package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.Listen)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "ko", cfg.Lang)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.Lang = "en"
	cfg.ICS = []ICSConfig{{URL: "https://example.com/cal.ics", ID: "team", Name: "Team"}}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", got.Listen)
	assert.Equal(t, "en", got.Lang)
	require.Len(t, got.ICS, 1)
	assert.Equal(t, "team", got.ICS[0].ID)
	require.NotNil(t, got.BasicAuth)
	assert.Equal(t, "admin", got.BasicAuth.Username)
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	cfg := &Config{
		WeekStart:   "wednesday",
		Lang:        "fr",
		RefreshView: "year",
	}
	cfg.Normalize()

	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "ko", cfg.Lang)
	assert.Equal(t, "month", cfg.RefreshView)
	assert.Equal(t, "127.0.0.1:8088", cfg.Listen)
}

func TestAPIKeyPrefersEnvironment(t *testing.T) {
	cfg := &Config{OpenWeatherAPIKey: "from-file"}
	assert.Equal(t, "from-file", cfg.APIKey())

	t.Setenv("OPENWEATHER_API_KEY", "from-env")
	assert.Equal(t, "from-env", cfg.APIKey())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
