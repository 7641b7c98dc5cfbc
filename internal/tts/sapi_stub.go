//go:build !windows

package tts

import "errors"

// sapiEngine exists only on Windows. The stub keeps the factory portable;
// the selector treats the construction error as an unavailable backend.
type sapiEngine struct{}

func newSAPIEngine(rate, volume int) (*sapiEngine, error) {
	return nil, errors.New("tts: sapi requires windows")
}

func (e *sapiEngine) Kind() Kind        { return KindSAPI }
func (e *sapiEngine) Available() bool   { return false }
func (e *sapiEngine) Speak(string) bool { return false }
func (e *sapiEngine) Voices() []Voice   { return nil }
func (e *sapiEngine) SetVoice(int) bool { return false }
func (e *sapiEngine) Status() string    { return "unavailable" }
func (e *sapiEngine) Close() error      { return nil }
