package tts

import (
	"fmt"
	"log/slog"
	"sync"
)

// Factory constructs a backend of the given kind. Construction may fail
// (missing binary, COM init error); the selector treats that the same as an
// unavailable backend.
type Factory func(kind Kind) (Engine, error)

// Service owns all backends and exposes the uniform speak/voice surface.
// Exactly one engine is active at a time; when nothing is usable the active
// engine is the disabled sentinel, never nil.
//
// Engine switching takes the write lock, Speak the read lock: switching is
// serialized against in-flight speech so a stale call can never observe a
// half-initialized backend. Concurrent Speak calls are allowed at this layer;
// per-backend single-flight guards handle non-reentrant engines.
type Service struct {
	factory Factory

	mu       sync.RWMutex
	active   Engine
	voiceIdx int
}

// NewService probes kinds in priority order and activates the first backend
// that constructs and reports available. If none does, the service starts on
// the disabled sentinel.
func NewService(factory Factory, order []Kind) *Service {
	s := &Service{factory: factory, active: disabledEngine{}}

	for _, kind := range order {
		if kind == KindDisabled {
			break
		}
		eng, err := factory(kind)
		if err != nil {
			slog.Debug("tts backend failed to construct", "engine", string(kind), "error", err)
			continue
		}
		if !eng.Available() {
			slog.Debug("tts backend unavailable", "engine", string(kind))
			eng.Close()
			continue
		}
		s.active = eng
		slog.Info("tts engine selected", "engine", string(kind), "status", eng.Status())
		break
	}

	if s.ActiveKind() == KindDisabled {
		slog.Warn("no tts backend available, speech disabled")
	}
	return s
}

// ActiveKind returns the identifier of the active engine, including the
// disabled sentinel.
func (s *Service) ActiveKind() Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Kind()
}

// Speak sanitizes text and hands it to the active backend. Returns false for
// empty text, the disabled sentinel, or a backend failure. Failures are
// terminal for this call only; the service stays usable.
func (s *Service) Speak(text string) bool {
	clean := Sanitize(text)
	if clean == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ok := s.active.Speak(clean)
	if !ok && s.active.Kind() != KindDisabled {
		slog.Warn("tts speak failed", "engine", string(s.active.Kind()))
	}
	return ok
}

// Switch replaces the active backend at runtime. Switching to the already
// active kind is a no-op returning true. Otherwise the current backend is
// torn down and the requested one initialized; success requires the new
// backend to report available. On failure the service lands on the disabled
// sentinel; the previous engine is already gone and is not resurrected.
func (s *Service) Switch(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Kind() == kind {
		return true
	}

	prev := s.active.Kind()
	if err := s.active.Close(); err != nil {
		slog.Warn("tts engine teardown error", "engine", string(prev), "error", err)
	}
	s.active = disabledEngine{}
	s.voiceIdx = 0

	if kind == KindDisabled {
		slog.Info("tts disabled", "previous", string(prev))
		return true
	}

	eng, err := s.factory(kind)
	if err != nil {
		slog.Error("tts engine switch failed", "engine", string(kind), "error", err)
		return false
	}
	if !eng.Available() {
		eng.Close()
		slog.Error("tts engine switch failed: backend unavailable", "engine", string(kind))
		return false
	}

	s.active = eng
	slog.Info("tts engine switched", "from", string(prev), "to", string(kind))
	return true
}

// Voices returns the active backend's voices in order.
func (s *Service) Voices() []Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Voices()
}

// SetVoice selects a voice by index on the active backend.
func (s *Service) SetVoice(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.SetVoice(index) {
		return false
	}
	s.voiceIdx = index
	return true
}

// NextVoice cycles to the next voice, wrapping to index 0 after the last.
// Returns the selected voice, or false when the backend has no voices.
func (s *Service) NextVoice() (Voice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices := s.active.Voices()
	if len(voices) == 0 {
		return Voice{}, false
	}
	next := (s.voiceIdx + 1) % len(voices)
	if !s.active.SetVoice(next) {
		return Voice{}, false
	}
	s.voiceIdx = next
	return voices[next], true
}

// Status describes the active engine and voice for logs and the CLI.
func (s *Service) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("%s: %s", s.active.Kind(), s.active.Status())
}

// Close tears down the active backend and leaves the service disabled.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.active.Close()
	s.active = disabledEngine{}
	return err
}

// disabledEngine is the always-valid sentinel backend.
type disabledEngine struct{}

func (disabledEngine) Kind() Kind         { return KindDisabled }
func (disabledEngine) Available() bool    { return true }
func (disabledEngine) Speak(string) bool  { return false }
func (disabledEngine) Voices() []Voice    { return nil }
func (disabledEngine) SetVoice(int) bool  { return false }
func (disabledEngine) Status() string     { return "speech disabled" }
func (disabledEngine) Close() error       { return nil }
