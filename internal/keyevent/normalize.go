package keyevent

import (
	"fmt"
	"strings"
)

// aliases maps the key-name spellings gohook and user configs produce onto
// one canonical form. Left/right variants of a modifier collapse into one
// name, matching how trigger bindings are written ("ctrl+f2").
var aliases = map[string]string{
	"lctrl":        "ctrl",
	"rctrl":        "ctrl",
	"ctrl_l":       "ctrl",
	"ctrl_r":       "ctrl",
	"control":      "ctrl",
	"lshift":       "shift",
	"rshift":       "shift",
	"shift_l":      "shift",
	"shift_r":      "shift",
	"lalt":         "alt",
	"ralt":         "alt",
	"alt_l":        "alt",
	"alt_r":        "alt",
	"lcmd":         "cmd",
	"rcmd":         "cmd",
	"lwin":         "cmd",
	"rwin":         "cmd",
	"win":          "cmd",
	"super":        "cmd",
	"meta":         "cmd",
	"escape":       "esc",
	"apps":         "menu",
	"application":  "menu",
	"context_menu": "menu",
	"space":        "space",
	"return":       "enter",
}

// Normalize maps a key name to its canonical lowercase form.
// Unknown names pass through lowercased so raw "vk_NNN" bindings keep working.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if canon, ok := aliases[n]; ok {
		return canon
	}
	return n
}

// VKName formats a raw keycode as a bindable "vk_NNN" key name.
func VKName(rawcode uint16) string {
	return fmt.Sprintf("vk_%d", rawcode)
}

// IsModifier reports whether a canonical key name is a modifier key.
func IsModifier(name string) bool {
	switch name {
	case "ctrl", "shift", "alt", "cmd":
		return true
	}
	return false
}
