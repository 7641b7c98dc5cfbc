// Command holdvox-speak is a manual test for the speech backends. It builds
// the speech service from the regular config and speaks the given text, so a
// voice setup can be checked without running the daemon.
//
// Usage:
//
//	go run ./cmd/holdvox-speak [--engine native|sapi|piper|openai] [--voice N] [--list] text...
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ewoodruff/holdvox/internal/audio"
	"github.com/ewoodruff/holdvox/internal/config"
	"github.com/ewoodruff/holdvox/internal/tts"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/holdvox/config.yaml)")
	engine := flag.String("engine", "", "use a specific engine instead of the configured probe order")
	voice := flag.Int("voice", -1, "voice index to use")
	list := flag.Bool("list", false, "list the active engine's voices and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	player, err := audio.NewPlayer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio playback: %v\n", err)
		os.Exit(1)
	}

	order, err := engineOrder(*engine, cfg.TTS.Engines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	service := tts.NewService(tts.NewFactory(tts.Options{
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
	}), order)
	defer service.Close()

	fmt.Printf("Engine: %s (%s)\n", service.ActiveKind(), service.Status())

	if *list {
		voices := service.Voices()
		if len(voices) == 0 {
			fmt.Println("No voices reported.")
			return
		}
		for i, v := range voices {
			fmt.Printf("  [%d] %s", i, v.ID)
			if v.Name != "" && v.Name != v.ID {
				fmt.Printf(" (%s)", v.Name)
			}
			fmt.Println()
		}
		return
	}

	if *voice >= 0 && !service.SetVoice(*voice) {
		fmt.Fprintf(os.Stderr, "voice index %d not available\n", *voice)
		os.Exit(1)
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		text = "Hello from holdvox."
	}

	fmt.Printf("Speaking: %q\n", text)
	if !service.Speak(text) {
		fmt.Fprintln(os.Stderr, "speech failed; see log output above")
		os.Exit(1)
	}
	fmt.Println("Done.")
}

// engineOrder returns the probe order: a single engine when requested,
// otherwise the configured list.
func engineOrder(override string, configured []string) ([]tts.Kind, error) {
	if override != "" {
		kind, err := tts.ParseKind(override)
		if err != nil {
			return nil, err
		}
		return []tts.Kind{kind}, nil
	}
	order := make([]tts.Kind, 0, len(configured))
	for _, name := range configured {
		kind, err := tts.ParseKind(name)
		if err != nil {
			return nil, err
		}
		order = append(order, kind)
	}
	return order, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
		return config.Load(config.DefaultConfigPath())
	}
	return config.Default(), nil
}
