// Command holdvox is a hold-to-talk voice assistant daemon. While a bound
// hotkey is held it records the microphone; on release the capture is
// transcribed and routed by mode: typed into the focused app, answered
// aloud, or sent to the model together with a screenshot.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ewoodruff/holdvox/internal/audio"
	"github.com/ewoodruff/holdvox/internal/ble"
	"github.com/ewoodruff/holdvox/internal/ble/crypto"
	"github.com/ewoodruff/holdvox/internal/config"
	"github.com/ewoodruff/holdvox/internal/dispatch"
	"github.com/ewoodruff/holdvox/internal/hotkey"
	"github.com/ewoodruff/holdvox/internal/inject"
	"github.com/ewoodruff/holdvox/internal/keyevent"
	"github.com/ewoodruff/holdvox/internal/llm"
	"github.com/ewoodruff/holdvox/internal/models"
	"github.com/ewoodruff/holdvox/internal/screenshot"
	"github.com/ewoodruff/holdvox/internal/singleton"
	"github.com/ewoodruff/holdvox/internal/transcribe"
	"github.com/ewoodruff/holdvox/internal/tts"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/holdvox/config.yaml)")
	downloadModels := flag.Bool("download-models", false, "download speech models interactively and exit")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	flag.Parse()

	if *downloadModels {
		if err := models.RunInteractiveDownload(); err != nil {
			fmt.Fprintf(os.Stderr, "download failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "writing config: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		} else {
			fmt.Printf("Config written to %s\n", path)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}

	// Exit directly rather than unwinding: gohook's C teardown is not safe
	// to re-enter and the OS reclaims the event hook on process exit.
	os.Exit(0)
}

func run(cfg *config.Config) error {
	lock, err := singleton.Acquire(filepath.Join(config.DefaultDataDir(), "holdvox.pid"))
	if err != nil {
		return err
	}
	defer lock.Release()

	printBanner(cfg)

	// Model load and audio device setup are independent and the model load
	// dominates startup time, so they run concurrently.
	var (
		transcriber transcribe.Transcriber
		sampler     *audio.Sampler
		player      *audio.Player
	)
	start := time.Now()
	var g errgroup.Group
	g.Go(func() error {
		var err error
		transcriber, err = transcribe.New(&cfg.Transcribe)
		if err != nil {
			return fmt.Errorf("loading transcriber (run 'holdvox -download-models' first?): %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sampler, err = audio.NewSampler(cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			return fmt.Errorf("initializing audio capture: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		player, err = audio.NewPlayer()
		if err != nil {
			return fmt.Errorf("initializing audio playback: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	defer transcriber.Close()
	defer sampler.Close()
	slog.Info("speech stack ready", "elapsed", time.Since(start).Round(time.Millisecond))

	completer, err := newCompleter(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("initializing llm client: %w", err)
	}
	conversation := llm.NewConversation(completer, cfg.LLM.SystemPrompt, cfg.LLM.MaxTurns)

	speech := tts.NewService(tts.NewFactory(tts.Options{
		RateWPM:       cfg.TTS.RateWPM,
		SAPIRate:      cfg.TTS.SAPIRate,
		SAPIVolume:    cfg.TTS.SAPIVolume,
		PiperBinary:   cfg.TTS.Piper.Binary,
		PiperModelDir: cfg.TTS.Piper.ModelDir,
		OpenAIKey:     cfg.TTS.OpenAI.APIKey,
		OpenAIBaseURL: cfg.TTS.OpenAI.BaseURL,
		OpenAIModel:   cfg.TTS.OpenAI.Model,
		OpenAIVoice:   cfg.TTS.OpenAI.Voice,
		Playback:      player,
	}), engineOrder(cfg.TTS.Engines))
	defer speech.Close()
	slog.Info("speech synthesis ready", "engine", speech.ActiveKind())

	dispatcher := dispatch.New(
		transcriber,
		conversation,
		screenshot.New(cfg.Screenshot.MaxWidth, cfg.Screenshot.SavePath),
		inject.NewInjector(cfg.Inject.Method),
		speech,
		0,
	)

	table, err := bindingTable(&cfg.Hotkeys)
	if err != nil {
		return err
	}
	machine := hotkey.NewMachine(table, sampler, dispatcher, conversation, hotkey.Options{
		ResetKey:   cfg.Hotkeys.ResetKey,
		ExitKey:    cfg.Hotkeys.ExitKey,
		MinSamples: cfg.Audio.MinSamples(),
	})

	listener := keyevent.NewListener()
	go listener.Start()

	var remote *ble.Remote
	if cfg.BLE.Enabled {
		remote, err = connectRemote(&cfg.BLE, listener.Inject)
		if err != nil {
			return err
		}
	}

	// SIGINT/SIGTERM feed the machine's exit path so both shutdown routes
	// release any live capture the same way.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("signal received, shutting down", "signal", sig.String())
		listener.Inject(keyevent.Event{
			Key:  keyevent.Normalize(cfg.Hotkeys.ExitKey),
			Edge: keyevent.Release,
			When: time.Now(),
		})
	}()

	slog.Info("ready", "exit_key", cfg.Hotkeys.ExitKey)
	machine.Run(listener.Events())

	// The remote injects into the listener, so it stops first.
	if remote != nil {
		_ = remote.Close()
	}
	listener.Stop()
	return nil
}

// newCompleter picks the chat client. Vision mode needs the OpenAI-compatible
// chat API so screenshots can ride along as image parts; it handles plain
// text requests as well, so it serves every mode when enabled.
func newCompleter(cfg *config.LLMConfig) (llm.Completer, error) {
	if cfg.Vision {
		c, err := llm.NewOpenAIChatCompleter(cfg.Model, cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := llm.NewAnyLLMCompleter(cfg.Provider, cfg.Model, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// engineOrder maps config engine names to kinds. Validate already rejected
// unknown names.
func engineOrder(names []string) []tts.Kind {
	order := make([]tts.Kind, 0, len(names))
	for _, name := range names {
		kind, err := tts.ParseKind(name)
		if err != nil {
			slog.Warn("skipping unknown tts engine", "engine", name)
			continue
		}
		order = append(order, kind)
	}
	return order
}

// bindingTable builds the mode bindings, with every extra dictation key
// added as a standalone trigger.
func bindingTable(cfg *config.HotkeysConfig) (*hotkey.BindingTable, error) {
	specs := []struct {
		spec string
		mode hotkey.Mode
	}{
		{cfg.Conversation, hotkey.Conversation},
		{cfg.Dictation, hotkey.Dictation},
		{cfg.AITyping, hotkey.AITyping},
		{cfg.ScreenAI, hotkey.ScreenAI},
	}

	var bindings []hotkey.Binding
	for _, s := range specs {
		b, err := hotkey.ParseBinding(s.spec, s.mode)
		if err != nil {
			return nil, fmt.Errorf("hotkey %q: %w", s.spec, err)
		}
		bindings = append(bindings, b)
	}
	for _, key := range cfg.ExtraDictationKeys {
		b, err := hotkey.ParseBinding(key, hotkey.Dictation)
		if err != nil {
			return nil, fmt.Errorf("extra dictation key %q: %w", key, err)
		}
		bindings = append(bindings, b)
	}
	return hotkey.NewBindingTable(bindings), nil
}

// connectRemote provisions the BLE trigger remote. A failed initial connect
// is not fatal; the remote keeps retrying in the background once the device
// comes in range after a disconnect, so the daemon still runs without it.
func connectRemote(cfg *config.BLEConfig, emit func(keyevent.Event)) (*ble.Remote, error) {
	secret, err := crypto.ParseSharedSecret(cfg.SharedSecret)
	if err != nil {
		return nil, fmt.Errorf("ble shared secret: %w", err)
	}
	key, err := crypto.DeriveEncryptionKey(secret)
	if err != nil {
		return nil, fmt.Errorf("deriving remote key: %w", err)
	}

	opts := ble.DefaultRemoteOptions()
	if cfg.TriggerKey != "" {
		opts.DefaultKey = cfg.TriggerKey
	}
	if cfg.ReconnectMax > 0 {
		opts.ReconnectMax = cfg.ReconnectMax
	}

	remote, err := ble.NewRemote(ble.NewSystemAdapter(), cfg.DeviceMAC, key, emit, opts)
	if err != nil {
		return nil, err
	}
	if err := remote.Connect(); err != nil {
		slog.Warn("ble remote unavailable, continuing without it", "device", cfg.DeviceMAC, "error", err)
	} else {
		slog.Info("ble remote connected", "device", cfg.DeviceMAC)
	}
	return remote, nil
}

// loadConfig loads the config from the specified path, or falls back to the
// default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== holdvox ===")
	fmt.Printf("  Model:        %s\n", cfg.Transcribe.ModelPath)
	fmt.Printf("  Conversation: %s\n", cfg.Hotkeys.Conversation)
	fmt.Printf("  Dictation:    %s\n", dictationSummary(&cfg.Hotkeys))
	fmt.Printf("  AI typing:    %s\n", cfg.Hotkeys.AITyping)
	fmt.Printf("  Screen AI:    %s\n", cfg.Hotkeys.ScreenAI)
	fmt.Printf("  LLM:          %s (%s)\n", cfg.LLM.Model, llmBackendName(&cfg.LLM))
	fmt.Printf("  Speech:       %s\n", strings.Join(cfg.TTS.Engines, " > "))
	fmt.Printf("  Audio:        %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Inject:       %s\n", cfg.Inject.Method)
	if cfg.BLE.Enabled {
		fmt.Printf("  Remote:       %s\n", cfg.BLE.DeviceMAC)
	}
	fmt.Printf("  Log:          %s\n", cfg.LogLevel)
	fmt.Println("===============")
}

func dictationSummary(cfg *config.HotkeysConfig) string {
	if len(cfg.ExtraDictationKeys) == 0 {
		return cfg.Dictation
	}
	return cfg.Dictation + ", " + strings.Join(cfg.ExtraDictationKeys, ", ")
}

func llmBackendName(cfg *config.LLMConfig) string {
	if cfg.Vision {
		return "openai-compatible, vision"
	}
	if cfg.Provider == "" {
		return "ollama"
	}
	return cfg.Provider
}
