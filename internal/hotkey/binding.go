package hotkey

import (
	"fmt"
	"strings"

	"github.com/ewoodruff/holdvox/internal/keyevent"
)

// Mode is the interaction style a capture session was recorded for.
type Mode int

const (
	// Conversation transcribes, asks the LLM, and speaks the reply.
	Conversation Mode = iota
	// Dictation types the raw transcript at the cursor.
	Dictation
	// AITyping asks the LLM and types the reply at the cursor.
	AITyping
	// ScreenAI includes a screenshot in the LLM request and types the reply.
	ScreenAI
)

// String returns the config-facing mode name.
func (m Mode) String() string {
	switch m {
	case Conversation:
		return "conversation"
	case Dictation:
		return "dictation"
	case AITyping:
		return "ai_typing"
	case ScreenAI:
		return "screen_ai"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Binding maps a key (optionally qualified by a modifier) to a capture Mode.
type Binding struct {
	Modifier string // "" for a standalone trigger
	Key      string
	Mode     Mode
}

// ParseBinding parses a config spec like "ctrl+f2" or "f15" into a Binding.
// At most one modifier is supported; it must come first.
func ParseBinding(spec string, mode Mode) (Binding, error) {
	parts := strings.Split(spec, "+")
	switch len(parts) {
	case 1:
		key := keyevent.Normalize(parts[0])
		if key == "" {
			return Binding{}, fmt.Errorf("hotkey: empty binding")
		}
		return Binding{Key: key, Mode: mode}, nil
	case 2:
		mod := keyevent.Normalize(parts[0])
		key := keyevent.Normalize(parts[1])
		if !keyevent.IsModifier(mod) {
			return Binding{}, fmt.Errorf("hotkey: %q is not a modifier in binding %q", parts[0], spec)
		}
		if key == "" || keyevent.IsModifier(key) {
			return Binding{}, fmt.Errorf("hotkey: invalid trigger key in binding %q", spec)
		}
		return Binding{Modifier: mod, Key: key, Mode: mode}, nil
	default:
		return Binding{}, fmt.Errorf("hotkey: binding %q has too many keys (one modifier + one key supported)", spec)
	}
}

// BindingTable holds all configured trigger bindings.
type BindingTable struct {
	bindings []Binding
}

// NewBindingTable builds a table from bindings. Order does not affect
// matching: modifier-qualified bindings always win over standalone ones for
// the same key when the modifier is held.
func NewBindingTable(bindings []Binding) *BindingTable {
	return &BindingTable{bindings: bindings}
}

// Add appends a binding. Used for the extra standalone dictation triggers
// from the environment override.
func (t *BindingTable) Add(b Binding) {
	t.bindings = append(t.bindings, b)
}

// Match finds the binding for a pressed key given the current modifier state.
// A modifier-qualified binding takes priority when its modifier is held;
// otherwise a standalone binding for the same key applies.
func (t *BindingTable) Match(key string, mods *ModifierState) (Binding, bool) {
	var standalone Binding
	var haveStandalone bool

	for _, b := range t.bindings {
		if b.Key != key {
			continue
		}
		if b.Modifier != "" {
			if mods.IsPressed(b.Modifier) {
				return b, true
			}
			continue
		}
		if !haveStandalone {
			standalone = b
			haveStandalone = true
		}
	}
	return standalone, haveStandalone
}
