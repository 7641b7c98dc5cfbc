// Package tts provides the text-to-speech service: a uniform capability
// surface over interchangeable synthesis backends, a selector that probes
// them in priority order at startup, and runtime engine switching.
package tts

import "fmt"

// Kind identifies a synthesis backend implementation.
type Kind string

const (
	// KindNative is the local OS voice command (say / espeak-ng).
	KindNative Kind = "native"
	// KindSAPI is the Windows Speech API via COM.
	KindSAPI Kind = "sapi"
	// KindPiper is a local neural model driven through the piper binary.
	KindPiper Kind = "piper"
	// KindOpenAI is the OpenAI speech endpoint (or a compatible server).
	KindOpenAI Kind = "openai"
	// KindDisabled is the sentinel active when no backend is usable.
	// Speak on it always returns false with no side effects, so callers
	// never need a nil check.
	KindDisabled Kind = "disabled"
)

// ParseKind validates a config engine name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNative, KindSAPI, KindPiper, KindOpenAI, KindDisabled:
		return Kind(s), nil
	}
	return "", fmt.Errorf("tts: unknown engine %q (supported: native, sapi, piper, openai, disabled)", s)
}

// Voice is one selectable voice of a backend. The position in the slice
// returned by Voices is the index used with SetVoice.
type Voice struct {
	ID   string // backend-scoped identifier (voice token, model path, …)
	Name string // display name
}

// Engine is the capability set every backend implements.
//
// Speak returns true iff audio was successfully initiated: backends that play
// synchronously return after playback, backends that schedule playback return
// once it is queued. Backends wrapping a non-reentrant engine must guarantee
// a single in-flight Speak per instance: a second call blocks or is rejected
// with a logged conflict, never undefined behavior.
type Engine interface {
	Kind() Kind
	Available() bool
	Speak(text string) bool
	Voices() []Voice
	SetVoice(index int) bool
	Status() string
	Close() error
}

// Playback is the sink for backends that synthesize to an in-memory waveform
// rather than driving the output device themselves. Satisfied by
// audio.Player.
type Playback interface {
	Play(samples []float32, sampleRate int) error
}
