// Package config loads, validates, and writes the holdvox YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ewoodruff/holdvox/internal/ble/crypto"
)

// ExtraKeysEnv is a comma-separated list of additional standalone dictation
// trigger keys, merged into hotkeys.extra_dictation_keys at load time. Raw
// keycodes from auxiliary devices are written as "vk_NNN".
const ExtraKeysEnv = "HOLDVOX_EXTRA_KEYS"

// Config holds all application configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Audio      AudioConfig      `yaml:"audio"`
	Hotkeys    HotkeysConfig    `yaml:"hotkeys"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	LLM        LLMConfig        `yaml:"llm"`
	TTS        TTSConfig        `yaml:"tts"`
	Inject     InjectConfig     `yaml:"inject"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	BLE        BLEConfig        `yaml:"ble"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
	// MinCaptureMillis discards captures shorter than this; taps too short
	// to contain speech just waste a whisper run.
	MinCaptureMillis int `yaml:"min_capture_ms"`
}

// MinSamples converts the minimum capture duration to a sample count.
func (a AudioConfig) MinSamples() int {
	return int(a.SampleRate) * a.MinCaptureMillis / 1000
}

// HotkeysConfig maps bindings to capture modes. Binding specs are
// "modifier+key" or a bare key, e.g. "ctrl+f2" or "f15".
type HotkeysConfig struct {
	Conversation string `yaml:"conversation"`
	Dictation    string `yaml:"dictation"`
	AITyping     string `yaml:"ai_typing"`
	ScreenAI     string `yaml:"screen_ai"`
	ResetKey     string `yaml:"reset_key"`
	ExitKey      string `yaml:"exit_key"`
	// ExtraDictationKeys are additional standalone dictation triggers,
	// typically raw "vk_NNN" codes from pedals or macro pads.
	ExtraDictationKeys []string `yaml:"extra_dictation_keys"`
}

// TranscribeConfig holds speech-to-text settings.
type TranscribeConfig struct {
	Backend   string `yaml:"backend"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

// LLMConfig holds chat model settings.
type LLMConfig struct {
	Provider     string `yaml:"provider"` // openai, anthropic, ollama, mistral, groq
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTurns     int    `yaml:"max_turns"` // retained conversation turns, 0 = unbounded
	// Vision routes all requests through the OpenAI-compatible chat API so
	// screen-aware prompts can attach the screenshot. Requires a base_url
	// exposing that API (Ollama's /v1 works) or provider "openai".
	Vision bool `yaml:"vision"`
}

// TTSConfig holds speech synthesis settings.
type TTSConfig struct {
	// Engines is the probe order at startup. First usable engine wins.
	Engines    []string       `yaml:"engines"`
	RateWPM    int            `yaml:"rate_wpm"`
	SAPIRate   int            `yaml:"sapi_rate"`   // -10..10
	SAPIVolume int            `yaml:"sapi_volume"` // 0..100
	Piper      PiperConfig    `yaml:"piper"`
	OpenAI     OpenAITTSEntry `yaml:"openai"`
}

// PiperConfig locates the piper binary and its voice models.
type PiperConfig struct {
	Binary   string `yaml:"binary"`
	ModelDir string `yaml:"model_dir"`
}

// OpenAITTSEntry configures the OpenAI speech backend.
type OpenAITTSEntry struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Voice   string `yaml:"voice"`
	BaseURL string `yaml:"base_url"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "type" or "paste"
}

// ScreenshotConfig holds screen capture settings.
type ScreenshotConfig struct {
	MaxWidth int    `yaml:"max_width"`
	SavePath string `yaml:"save_path"` // optional PNG copy of the last capture
}

// BLEConfig holds the trigger remote settings.
type BLEConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DeviceMAC    string `yaml:"device_mac"`
	SharedSecret string `yaml:"shared_secret"` // 64 hex chars
	TriggerKey   string `yaml:"trigger_key"`   // key name emitted for packets without one
	ReconnectMax int    `yaml:"reconnect_max"` // max backoff seconds
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "holdvox")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns where models and captures live.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "holdvox")
}

// DefaultModelsDir returns where transcription models live.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// DefaultVoicesDir returns where piper voice models live.
func DefaultVoicesDir() string {
	return filepath.Join(DefaultDataDir(), "voices")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dataDir := DefaultDataDir()

	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate:       16000,
			Channels:         1,
			MinCaptureMillis: 300,
		},
		Hotkeys: HotkeysConfig{
			Conversation: "ctrl+f2",
			Dictation:    "ctrl+f1",
			AITyping:     "f15",
			ScreenAI:     "f14",
			ResetKey:     "menu",
			ExitKey:      "esc",
		},
		Transcribe: TranscribeConfig{
			Backend:   "whisper",
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
			Language:  "en",
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			Model:        "llama3.2",
			BaseURL:      "http://localhost:11434/v1",
			SystemPrompt: "You are a helpful voice assistant. Keep replies short and speakable.",
			MaxTurns:     20,
			Vision:       true,
		},
		TTS: TTSConfig{
			Engines:    []string{"native", "sapi", "piper", "openai"},
			RateWPM:    180,
			SAPIRate:   0,
			SAPIVolume: 100,
			Piper: PiperConfig{
				Binary:   "piper",
				ModelDir: DefaultVoicesDir(),
			},
			OpenAI: OpenAITTSEntry{
				Model: "tts-1",
				Voice: "alloy",
			},
		},
		Inject: InjectConfig{
			Method: "type",
		},
		Screenshot: ScreenshotConfig{
			MaxWidth: 1024,
			SavePath: filepath.Join(dataDir, "captures", "last.png"),
		},
		BLE: BLEConfig{
			TriggerKey:   "f13",
			ReconnectMax: 30,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults, tildes in paths are expanded, and extra dictation keys from the
// HOLDVOX_EXTRA_KEYS environment variable are merged in.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)
	cfg.TTS.Piper.ModelDir = expandTilde(cfg.TTS.Piper.ModelDir)
	cfg.Screenshot.SavePath = expandTilde(cfg.Screenshot.SavePath)
	cfg.mergeExtraKeys(os.Getenv(ExtraKeysEnv))

	return cfg, nil
}

// mergeExtraKeys appends keys from the environment list, skipping blanks and
// duplicates.
func (c *Config) mergeExtraKeys(envList string) {
	if envList == "" {
		return
	}
	seen := make(map[string]bool, len(c.Hotkeys.ExtraDictationKeys))
	for _, k := range c.Hotkeys.ExtraDictationKeys {
		seen[k] = true
	}
	for _, k := range strings.Split(envList, ",") {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		c.Hotkeys.ExtraDictationKeys = append(c.Hotkeys.ExtraDictationKeys, k)
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if c.Audio.MinCaptureMillis < 0 {
		return fmt.Errorf("audio.min_capture_ms must be >= 0")
	}

	for name, spec := range map[string]string{
		"hotkeys.conversation": c.Hotkeys.Conversation,
		"hotkeys.dictation":    c.Hotkeys.Dictation,
		"hotkeys.ai_typing":    c.Hotkeys.AITyping,
		"hotkeys.screen_ai":    c.Hotkeys.ScreenAI,
		"hotkeys.reset_key":    c.Hotkeys.ResetKey,
		"hotkeys.exit_key":     c.Hotkeys.ExitKey,
	} {
		if spec == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	switch c.Transcribe.Backend {
	case "whisper", "":
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("transcribe.model_path must not be empty for the whisper backend")
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper\", got %q", c.Transcribe.Backend)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.Vision && c.LLM.Provider != "openai" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.vision requires llm.base_url (an OpenAI-compatible endpoint) or provider \"openai\"")
	}

	if len(c.TTS.Engines) == 0 {
		return fmt.Errorf("tts.engines must not be empty (use [\"disabled\"] to silence speech)")
	}
	if c.TTS.SAPIRate < -10 || c.TTS.SAPIRate > 10 {
		return fmt.Errorf("tts.sapi_rate must be in -10..10, got %d", c.TTS.SAPIRate)
	}
	if c.TTS.SAPIVolume < 0 || c.TTS.SAPIVolume > 100 {
		return fmt.Errorf("tts.sapi_volume must be in 0..100, got %d", c.TTS.SAPIVolume)
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if c.Screenshot.MaxWidth <= 0 {
		return fmt.Errorf("screenshot.max_width must be > 0")
	}

	if c.BLE.Enabled {
		if c.BLE.DeviceMAC == "" {
			return fmt.Errorf("ble.device_mac must be set when ble.enabled is true")
		}
		if _, err := crypto.ParseSharedSecret(c.BLE.SharedSecret); err != nil {
			return fmt.Errorf("ble.shared_secret: %w", err)
		}
	}

	return nil
}

// WriteDefault writes a commented default config to the default path if none
// exists yet. Returns the written path, or "" if a config was already there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}
	content := "# holdvox configuration\n# Hotkey bindings are \"modifier+key\" or a bare key name.\n" + string(data)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values default to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
