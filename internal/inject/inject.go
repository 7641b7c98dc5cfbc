// Package inject provides text injection into the active application
// using robotgo for keystroke simulation or clipboard paste.
package inject

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method string // "type" or "paste"
}

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{method: method}
}

// Inject sends text to the active application using the configured method.
// Curly apostrophes are straightened first; transcription output uses them
// but code editors and terminals choke on them.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}
	text = normalizeQuotes(text)

	inj.wakeTarget()

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text)
	}
}

// wakeTarget nudges the focused application before real input. Some targets
// drop the first synthetic keystroke after idling; a throwaway space plus
// backspace absorbs that loss.
func (inj *Injector) wakeTarget() {
	time.Sleep(100 * time.Millisecond)
	robotgo.Type(" ")
	_ = robotgo.KeyTap("backspace")
}

// typeText simulates individual keystrokes. Preserves clipboard contents
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to clipboard and pastes it with the platform shortcut.
// Faster for long text but briefly overwrites the clipboard.
func (inj *Injector) paste(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := robotgo.KeyTap("v", pasteModifier()); err != nil {
		return fmt.Errorf("inject: key tap paste: %w", err)
	}

	// Restore previous clipboard (best effort)
	_ = robotgo.WriteAll(prev)

	return nil
}

func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// normalizeQuotes replaces curly single quotes with the ASCII apostrophe.
func normalizeQuotes(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '‘' || r == '’' {
			return '\''
		}
		return r
	}, text)
}
