package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.MinCaptureMillis != 300 {
		t.Errorf("Audio.MinCaptureMillis = %d, want 300", cfg.Audio.MinCaptureMillis)
	}
	if cfg.Hotkeys.Conversation != "ctrl+f2" {
		t.Errorf("Hotkeys.Conversation = %q, want %q", cfg.Hotkeys.Conversation, "ctrl+f2")
	}
	if cfg.Hotkeys.ResetKey != "menu" || cfg.Hotkeys.ExitKey != "esc" {
		t.Errorf("control keys = %q/%q, want menu/esc", cfg.Hotkeys.ResetKey, cfg.Hotkeys.ExitKey)
	}
	if cfg.Transcribe.Backend != "whisper" {
		t.Errorf("Transcribe.Backend = %q, want %q", cfg.Transcribe.Backend, "whisper")
	}
	if cfg.Transcribe.ModelPath == "" {
		t.Error("Transcribe.ModelPath should not be empty")
	}
	if cfg.Inject.Method != "type" {
		t.Errorf("Inject.Method = %q, want %q", cfg.Inject.Method, "type")
	}
	if cfg.Screenshot.MaxWidth != 1024 {
		t.Errorf("Screenshot.MaxWidth = %d, want 1024", cfg.Screenshot.MaxWidth)
	}
	if len(cfg.TTS.Engines) == 0 || cfg.TTS.Engines[0] != "native" {
		t.Errorf("TTS.Engines = %v, want native first", cfg.TTS.Engines)
	}
	if cfg.BLE.Enabled {
		t.Error("BLE should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestMinSamples(t *testing.T) {
	a := AudioConfig{SampleRate: 16000, MinCaptureMillis: 300}
	if got := a.MinSamples(); got != 4800 {
		t.Errorf("MinSamples() = %d, want 4800", got)
	}
}

func writeConfig(t *testing.T, yamlContent string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	cfgPath := writeConfig(t, `
log_level: debug
audio:
  sample_rate: 44100
  channels: 2
hotkeys:
  conversation: alt+f5
  extra_dictation_keys: ["vk_179"]
transcribe:
  model_path: /tmp/test-model.bin
llm:
  provider: openai
  model: gpt-4o-mini
tts:
  engines: ["piper", "openai"]
inject:
  method: paste
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 2 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if cfg.Hotkeys.Conversation != "alt+f5" {
		t.Errorf("Hotkeys.Conversation = %q", cfg.Hotkeys.Conversation)
	}
	// Unset fields keep defaults.
	if cfg.Hotkeys.Dictation != "ctrl+f1" {
		t.Errorf("Hotkeys.Dictation = %q, want default", cfg.Hotkeys.Dictation)
	}
	if len(cfg.Hotkeys.ExtraDictationKeys) != 1 || cfg.Hotkeys.ExtraDictationKeys[0] != "vk_179" {
		t.Errorf("ExtraDictationKeys = %v", cfg.Hotkeys.ExtraDictationKeys)
	}
	if cfg.Transcribe.ModelPath != "/tmp/test-model.bin" {
		t.Errorf("Transcribe.ModelPath = %q", cfg.Transcribe.ModelPath)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if len(cfg.TTS.Engines) != 2 || cfg.TTS.Engines[0] != "piper" {
		t.Errorf("TTS.Engines = %v", cfg.TTS.Engines)
	}
	if cfg.Inject.Method != "paste" {
		t.Errorf("Inject.Method = %q", cfg.Inject.Method)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	cfgPath := writeConfig(t, `
transcribe:
  model_path: ~/models/test.bin
tts:
  piper:
    model_dir: ~/voices
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "models/test.bin"); cfg.Transcribe.ModelPath != want {
		t.Errorf("Transcribe.ModelPath = %q, want %q", cfg.Transcribe.ModelPath, want)
	}
	if want := filepath.Join(home, "voices"); cfg.TTS.Piper.ModelDir != want {
		t.Errorf("TTS.Piper.ModelDir = %q, want %q", cfg.TTS.Piper.ModelDir, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadMergesExtraKeysFromEnv(t *testing.T) {
	t.Setenv(ExtraKeysEnv, "vk_179, vk_180,,vk_179")

	cfgPath := writeConfig(t, `
hotkeys:
  extra_dictation_keys: ["vk_179"]
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"vk_179", "vk_180"}
	if len(cfg.Hotkeys.ExtraDictationKeys) != len(want) {
		t.Fatalf("ExtraDictationKeys = %v, want %v", cfg.Hotkeys.ExtraDictationKeys, want)
	}
	for i, k := range want {
		if cfg.Hotkeys.ExtraDictationKeys[i] != k {
			t.Errorf("ExtraDictationKeys[%d] = %q, want %q", i, cfg.Hotkeys.ExtraDictationKeys[i], k)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Audio.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "negative min capture",
			modify:  func(c *Config) { c.Audio.MinCaptureMillis = -1 },
			wantErr: true,
		},
		{
			name:    "empty mode binding",
			modify:  func(c *Config) { c.Hotkeys.Dictation = "" },
			wantErr: true,
		},
		{
			name:    "empty exit key",
			modify:  func(c *Config) { c.Hotkeys.ExitKey = "" },
			wantErr: true,
		},
		{
			name:    "unknown transcribe backend",
			modify:  func(c *Config) { c.Transcribe.Backend = "parakeet" },
			wantErr: true,
		},
		{
			name:    "empty transcribe model path",
			modify:  func(c *Config) { c.Transcribe.ModelPath = "" },
			wantErr: true,
		},
		{
			name:    "empty llm model",
			modify:  func(c *Config) { c.LLM.Model = "" },
			wantErr: true,
		},
		{
			name: "vision without compatible endpoint",
			modify: func(c *Config) {
				c.LLM.Vision = true
				c.LLM.Provider = "anthropic"
				c.LLM.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name:    "empty tts engines",
			modify:  func(c *Config) { c.TTS.Engines = nil },
			wantErr: true,
		},
		{
			name:    "sapi rate out of range",
			modify:  func(c *Config) { c.TTS.SAPIRate = 11 },
			wantErr: true,
		},
		{
			name:    "sapi volume out of range",
			modify:  func(c *Config) { c.TTS.SAPIVolume = 101 },
			wantErr: true,
		},
		{
			name:    "invalid inject method",
			modify:  func(c *Config) { c.Inject.Method = "ble" },
			wantErr: true,
		},
		{
			name:    "zero screenshot width",
			modify:  func(c *Config) { c.Screenshot.MaxWidth = 0 },
			wantErr: true,
		},
		{
			name:    "ble enabled without mac",
			modify:  func(c *Config) { c.BLE.Enabled = true },
			wantErr: true,
		},
		{
			name: "ble enabled with bad secret",
			modify: func(c *Config) {
				c.BLE.Enabled = true
				c.BLE.DeviceMAC = "AA:BB:CC:DD:EE:FF"
				c.BLE.SharedSecret = "not-hex"
			},
			wantErr: true,
		},
		{
			name: "ble enabled fully provisioned",
			modify: func(c *Config) {
				c.BLE.Enabled = true
				c.BLE.DeviceMAC = "AA:BB:CC:DD:EE:FF"
				c.BLE.SharedSecret = strings.Repeat("ab", 32)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "holdvox", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# holdvox") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Hotkeys.Conversation != "ctrl+f2" {
		t.Errorf("written config Hotkeys.Conversation = %q", cfg.Hotkeys.Conversation)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "holdvox")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0o644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	// WriteDefault should return ("", nil) without overwriting
	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
