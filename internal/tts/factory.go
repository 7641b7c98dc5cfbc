package tts

import "fmt"

// Options carries the backend construction parameters from config. Playback
// is shared by every backend that synthesizes to memory.
type Options struct {
	RateWPM    int // native voice command rate
	SAPIRate   int // -10..10
	SAPIVolume int // 0..100

	PiperBinary   string
	PiperModelDir string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIVoice   string

	Playback Playback
}

// NewFactory returns the production backend factory.
func NewFactory(opts Options) Factory {
	return func(kind Kind) (Engine, error) {
		switch kind {
		case KindNative:
			return newNativeEngine(opts.RateWPM)
		case KindSAPI:
			return newSAPIEngine(opts.SAPIRate, opts.SAPIVolume)
		case KindPiper:
			return newPiperEngine(opts.PiperBinary, opts.PiperModelDir, opts.Playback)
		case KindOpenAI:
			if opts.OpenAIKey == "" {
				return nil, fmt.Errorf("tts: openai backend needs an api key")
			}
			return newOpenAIEngine(opts.OpenAIKey, opts.OpenAIBaseURL, opts.OpenAIModel, opts.OpenAIVoice, opts.Playback), nil
		case KindDisabled:
			return disabledEngine{}, nil
		}
		return nil, fmt.Errorf("tts: unknown engine %q", kind)
	}
}
