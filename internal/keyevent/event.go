// Package keyevent provides the global key event stream.
//
// A Listener hooks the OS keyboard via gohook and publishes every key
// press/release edge on a single channel. All consumers (modifier tracking,
// the hotkey state machine) read from that one channel, so session state is
// only ever mutated from one goroutine.
package keyevent

import "time"

// Edge distinguishes a key press from a key release.
type Edge int

const (
	// Press is a key-down edge.
	Press Edge = iota
	// Release is a key-up edge.
	Release
)

// String returns "press" or "release".
func (e Edge) String() string {
	if e == Release {
		return "release"
	}
	return "press"
}

// Event is one key edge from the global keyboard hook.
// Key is a canonical lowercase name ("ctrl", "f2", "a", "vk_179").
type Event struct {
	Key  string
	Edge Edge
	When time.Time
}
