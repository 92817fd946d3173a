package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"
)

const (
	TransportGenAI     = "genai"
	TransportWebsocket = "websocket"
)

type Config struct {
	Hotkey       string           `json:"hotkey"`
	HotkeyDarwin string           `json:"hotkey_darwin"`
	Mode         string           `json:"mode"` // "PushToTalk" or "Toggle"
	LogLevel     string           `json:"log_level"`
	Audio        AudioConfig      `json:"audio"`
	Live         LiveConfig       `json:"live"`
	Transcripts  TranscriptConfig `json:"transcripts"`
	CopyOnTurn   bool             `json:"copy_on_turn"`

	// APIKey only ever comes from the environment.
	APIKey string `json:"-"`

	path string
}

type AudioConfig struct {
	DeviceID         string `json:"device_id"`
	OutputDeviceID   string `json:"output_device_id"`
	InputSampleRate  int    `json:"input_sample_rate"`
	OutputSampleRate int    `json:"output_sample_rate"`
	ChunkSize        int    `json:"chunk_size"`
	FramesPerBuffer  int    `json:"frames_per_buffer"`
	InputChannels    int    `json:"input_channels"`
}

type LiveConfig struct {
	Model     string `json:"model"`
	Voice     string `json:"voice"`
	Transport string `json:"transport"` // "genai" or "websocket"
	Endpoint  string `json:"endpoint"`
}

type TranscriptConfig struct {
	Save bool   `json:"save"`
	Dir  string `json:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey:       "Ctrl+Alt+Space",
		HotkeyDarwin: "Alt+Space", // Option+Space
		Mode:         ModeToggle,
		LogLevel:     "info",
		Audio: AudioConfig{
			InputSampleRate:  16000,
			OutputSampleRate: 24000,
			ChunkSize:        4096,
			FramesPerBuffer:  1024,
			InputChannels:    1,
		},
		Live: LiveConfig{
			Model:     "gemini-2.5-flash-native-audio-preview-09-2025",
			Voice:     "Kore",
			Transport: TransportGenAI,
		},
		Transcripts: TranscriptConfig{
			Dir: TranscriptsPath(),
		},
	}
}

// Load reads the config from disk or returns defaults, then applies
// .env and environment overrides.
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Missing .env is normal
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.APIKey = getEnvOrDefault("GEMINI_API_KEY", os.Getenv("API_KEY"))
	c.Live.Model = getEnvOrDefault("LIVE_MODEL", c.Live.Model)
	c.Live.Voice = getEnvOrDefault("LIVE_VOICE", c.Live.Voice)
	c.Live.Transport = getEnvOrDefault("LIVE_TRANSPORT", c.Live.Transport)
	c.Live.Endpoint = getEnvOrDefault("LIVE_ENDPOINT", c.Live.Endpoint)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.Transcripts.Save = getBoolEnvOrDefault("SAVE_TRANSCRIPTS", c.Transcripts.Save)
	c.Audio.FramesPerBuffer = getIntEnvOrDefault("FRAMES_PER_BUFFER", c.Audio.FramesPerBuffer)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Mode != ModePushToTalk && c.Mode != ModeToggle {
		return fmt.Errorf("mode must be %q or %q, got %q", ModePushToTalk, ModeToggle, c.Mode)
	}
	if c.Live.Transport != TransportGenAI && c.Live.Transport != TransportWebsocket {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportGenAI, TransportWebsocket, c.Live.Transport)
	}
	if c.Live.Model == "" {
		return fmt.Errorf("live model is required")
	}
	if c.Audio.InputSampleRate <= 0 || c.Audio.OutputSampleRate <= 0 {
		return fmt.Errorf("sample rates must be positive")
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames per buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("input channels must be at least 1, got %d", c.Audio.InputChannels)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "live-tray", "config.json")
}

// TranscriptsPath returns the platform-specific transcript directory
func TranscriptsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "live-tray", "transcripts")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
