// Package config loads and saves the propal TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all propal configuration.
type Config struct {
	General      GeneralConfig      `toml:"general"`
	Server       ServerConfig       `toml:"server"`
	Capabilities CapabilitiesConfig `toml:"capabilities"`
	Notes        NotesConfig        `toml:"notes"`
	Log          LogConfig          `toml:"log"`
	Appearance   AppearanceConfig   `toml:"appearance"`
	LiveKit      LiveKitConfig      `toml:"livekit"`
}

// GeneralConfig holds report output preferences.
type GeneralConfig struct {
	ReportsDir string `toml:"reports_dir"`
	Format     string `toml:"format"`
}

// ServerConfig holds the session ingest server settings.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// CapabilitiesConfig declares which optional providers the voice agent runs
// with. It lets the final summary tell "configured but silent" apart from
// "not configured".
type CapabilitiesConfig struct {
	STT bool `toml:"stt"`
	EOU bool `toml:"eou"`
}

// NotesConfig holds the per-category notes written to the Summary table.
type NotesConfig struct {
	LLM string `toml:"llm"`
	TTS string `toml:"tts"`
	STT string `toml:"stt"`
	EOU string `toml:"eou"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds dashboard theme preferences.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LiveKitConfig holds credentials and defaults for outbound SIP calls.
type LiveKitConfig struct {
	URL                 string `toml:"url,omitempty"`
	APIKey              string `toml:"api_key,omitempty"`
	APISecret           string `toml:"api_secret,omitempty"`
	SIPTrunkID          string `toml:"sip_trunk_id,omitempty"`
	Room                string `toml:"room"`
	PhoneNumber         string `toml:"phone_number,omitempty"`
	ParticipantIdentity string `toml:"participant_identity"`
	ParticipantName     string `toml:"participant_name"`
	KrispEnabled        bool   `toml:"krisp_enabled"`
	WaitUntilAnswered   bool   `toml:"wait_until_answered"`
}

// Report formats.
const (
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			ReportsDir: "metrics_reports",
			Format:     FormatXLSX,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8790",
			EventsBuffer: 200,
		},
		Capabilities: CapabilitiesConfig{
			STT: true,
			EOU: true,
		},
		Notes: NotesConfig{
			LLM: "LLM metrics from GPT-4o-mini",
			TTS: "TTS metrics from Cartesia Sonic-2",
			STT: "STT metrics from Deepgram Nova-2 (may be 0 with some configs)",
			EOU: "EOU metrics require VAD/turn detection (may be 0)",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		LiveKit: LiveKitConfig{
			Room:                "my-assistant-room",
			ParticipantIdentity: "sip-caller",
			ParticipantName:     "Phone Caller",
			KrispEnabled:        true,
			WaitUntilAnswered:   true,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "propal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "propal")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config at path, returning defaults if it doesn't exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.General.Format {
	case FormatXLSX, FormatSQLite:
	default:
		return fmt.Errorf("invalid report format %q (want %s or %s)", c.General.Format, FormatXLSX, FormatSQLite)
	}
	if c.General.ReportsDir == "" {
		return fmt.Errorf("reports_dir must not be empty")
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile writes the config to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	//nolint:gosec // config path is chosen by the local user
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists reports whether a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LiveKitCredentials returns URL, key and secret from env vars or config,
// env vars first.
func LiveKitCredentials(cfg Config) (url, key, secret string) {
	url = envOr("LIVEKIT_URL", cfg.LiveKit.URL)
	key = envOr("LIVEKIT_API_KEY", cfg.LiveKit.APIKey)
	secret = envOr("LIVEKIT_API_SECRET", cfg.LiveKit.APISecret)
	return url, key, secret
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
