package keyevent

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// Listener captures global key events via gohook and republishes them as
// canonical Events on a buffered channel.
type Listener struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener. Call Start in a goroutine, then consume Events.
func NewListener() *Listener {
	return &Listener{
		ch:   make(chan Event, 64),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives key events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for global key events. It blocks until Stop is
// called, so run it in a goroutine.
func (l *Listener) Start() {
	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()

	for ev := range evChan {
		var edge Edge
		switch ev.Kind {
		case hook.KeyDown:
			edge = Press
		case hook.KeyUp:
			edge = Release
		default:
			continue
		}

		out := Event{Key: keyName(ev), Edge: edge, When: ev.When}
		select {
		case l.ch <- out:
		default: // don't block the hook pump if the consumer stalls
		}
	}
	close(l.ch)
}

// Inject publishes an event from an auxiliary source (the BLE remote) into
// the same stream as keyboard events. Non-blocking, like the hook pump.
// Callers must stop injecting before Stop is called.
func (l *Listener) Inject(ev Event) {
	select {
	case l.ch <- ev:
	default:
	}
}

// Stop terminates the listener. Safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// keyName converts a raw gohook event to a canonical key name. Keys without a
// known name are reported as "vk_<rawcode>" so they can still be bound in the
// config (auxiliary devices such as FLIRC receivers show up this way).
func keyName(ev hook.Event) string {
	if name := hook.RawcodetoKeychar(ev.Rawcode); name != "" {
		return Normalize(name)
	}
	return VKName(ev.Rawcode)
}
