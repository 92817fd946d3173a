package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "API_KEY", "LIVE_MODEL", "LIVE_VOICE", "LIVE_TRANSPORT", "LIVE_ENDPOINT", "LOG_LEVEL", "SAVE_TRANSCRIPTS", "FRAMES_PER_BUFFER"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Mode != ModeToggle {
		t.Errorf("mode = %q, want %q", cfg.Mode, ModeToggle)
	}
	if cfg.Audio.ChunkSize != 4096 || cfg.Audio.InputSampleRate != 16000 || cfg.Audio.OutputSampleRate != 24000 {
		t.Errorf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Live.Voice != "Kore" {
		t.Errorf("voice = %q, want Kore", cfg.Live.Voice)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "fallback")
	t.Setenv("LIVE_VOICE", "Puck")
	t.Setenv("LIVE_TRANSPORT", TransportWebsocket)
	t.Setenv("SAVE_TRANSCRIPTS", "true")
	t.Setenv("FRAMES_PER_BUFFER", "not-a-number")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIKey != "fallback" {
		t.Errorf("APIKey = %q, want fallback", cfg.APIKey)
	}
	if cfg.Live.Voice != "Puck" || cfg.Live.Transport != TransportWebsocket {
		t.Errorf("unexpected live config: %+v", cfg.Live)
	}
	if !cfg.Transcripts.Save {
		t.Error("SAVE_TRANSCRIPTS should enable saving")
	}
	if cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("invalid int env should keep default, got %d", cfg.Audio.FramesPerBuffer)
	}

	t.Setenv("GEMINI_API_KEY", "primary")
	cfg.applyEnv()
	if cfg.APIKey != "primary" {
		t.Errorf("GEMINI_API_KEY should win, got %q", cfg.APIKey)
	}
}

func TestSaveRoundTripOmitsAPIKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cfg.APIKey = "secret"
	cfg.Mode = ModePushToTalk
	cfg.Audio.DeviceID = "USB Mic"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) == "" {
		t.Fatal("config file is empty")
	}
	for _, forbidden := range []string{"secret", "APIKey"} {
		if strings.Contains(string(data), forbidden) {
			t.Errorf("saved config contains %q", forbidden)
		}
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Mode != ModePushToTalk || loaded.Audio.DeviceID != "USB Mic" {
		t.Errorf("reloaded config lost changes: mode=%q device=%q", loaded.Mode, loaded.Audio.DeviceID)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "Hold" }},
		{"bad transport", func(c *Config) { c.Live.Transport = "grpc" }},
		{"empty model", func(c *Config) { c.Live.Model = "" }},
		{"zero rate", func(c *Config) { c.Audio.OutputSampleRate = 0 }},
		{"zero chunk", func(c *Config) { c.Audio.ChunkSize = 0 }},
		{"zero frames", func(c *Config) { c.Audio.FramesPerBuffer = 0 }},
		{"no channels", func(c *Config) { c.Audio.InputChannels = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
