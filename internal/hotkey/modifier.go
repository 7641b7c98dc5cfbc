// Package hotkey implements the trigger-binding table, modifier tracking, and
// the capture state machine that turns global key events into recording
// sessions.
package hotkey

import "github.com/ewoodruff/holdvox/internal/keyevent"

// ModifierState tracks which modifier keys are currently held. It is mutated
// only by OnKeyEvent and must be fed from the same goroutine that drives the
// state machine, so reads at trigger-decision time never race.
type ModifierState struct {
	pressed map[string]bool
}

// NewModifierState returns an empty ModifierState.
func NewModifierState() *ModifierState {
	return &ModifierState{pressed: make(map[string]bool)}
}

// OnKeyEvent updates the state for modifier keys. Non-modifier keys are
// no-ops. A release always clears the entry, even without a matching press,
// so the state converges with the real keyboard after a missed event.
func (m *ModifierState) OnKeyEvent(ev keyevent.Event) {
	if !keyevent.IsModifier(ev.Key) {
		return
	}
	if ev.Edge == keyevent.Press {
		m.pressed[ev.Key] = true
	} else {
		delete(m.pressed, ev.Key)
	}
}

// IsPressed reports whether the named modifier is currently held.
func (m *ModifierState) IsPressed(name string) bool {
	return m.pressed[name]
}
