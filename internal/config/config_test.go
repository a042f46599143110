package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[general]
format = "sqlite"

[capabilities]
stt = false

[notes]
llm = "LLM metrics from a local model"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatSQLite, cfg.General.Format)
	assert.Equal(t, "metrics_reports", cfg.General.ReportsDir)
	assert.False(t, cfg.Capabilities.STT)
	assert.True(t, cfg.Capabilities.EOU)
	assert.Equal(t, "LLM metrics from a local model", cfg.Notes.LLM)
	assert.Equal(t, DefaultConfig().Notes.TTS, cfg.Notes.TTS)
}

func TestLoadFile_RejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\nformat = \"csv\"\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.LiveKit.SIPTrunkID = "ST_test"
	cfg.Server.Addr = "127.0.0.1:9999"

	assert.False(t, Exists(path))
	require.NoError(t, SaveFile(path, cfg))
	assert.True(t, Exists(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLiveKitCredentials_EnvWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LiveKit.URL = "wss://from-config.livekit.cloud"
	cfg.LiveKit.APIKey = "config-key"

	t.Setenv("LIVEKIT_URL", "wss://from-env.livekit.cloud")
	t.Setenv("LIVEKIT_API_KEY", "")
	t.Setenv("LIVEKIT_API_SECRET", "env-secret")

	url, key, secret := LiveKitCredentials(cfg)
	assert.Equal(t, "wss://from-env.livekit.cloud", url)
	assert.Equal(t, "config-key", key)
	assert.Equal(t, "env-secret", secret)
}
