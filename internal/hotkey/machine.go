package hotkey

import (
	"log/slog"
	"time"

	"github.com/ewoodruff/holdvox/internal/keyevent"
)

// Sampler is the audio capture collaborator. Arm starts accumulating frames
// into a fresh buffer; Disarm stops and returns what was captured.
type Sampler interface {
	Arm() error
	Disarm() []float32
}

// Dispatcher receives a completed capture. Implementations are expected to be
// long-running (transcription, model calls); the machine invokes Dispatch on
// its own goroutine so the event loop is never blocked.
type Dispatcher interface {
	Dispatch(mode Mode, samples []float32)
}

// Resetter clears the conversation memory of the LLM collaborator.
type Resetter interface {
	Reset()
}

// Machine is the hotkey capture state machine. It is idle or recording one
// session; conflicting trigger presses during a session are ignored, never
// queued. All methods must be called from a single event-processing
// goroutine; Run does exactly that.
type Machine struct {
	bindings   *BindingTable
	mods       *ModifierState
	sampler    Sampler
	dispatcher Dispatcher
	resetter   Resetter

	resetKey   string
	exitKey    string
	minSamples int

	recording  bool
	activeKey  string
	activeMode Mode
	startedAt  time.Time
}

// Options configures a Machine.
type Options struct {
	ResetKey   string // clears conversation memory, bound to no Mode
	ExitKey    string // terminates the event loop, even mid-session
	MinSamples int    // captures shorter than this are skipped
}

// NewMachine builds a state machine over the given binding table and
// collaborators. resetter may be nil when no LLM is configured.
func NewMachine(bindings *BindingTable, sampler Sampler, dispatcher Dispatcher, resetter Resetter, opts Options) *Machine {
	return &Machine{
		bindings:   bindings,
		mods:       NewModifierState(),
		sampler:    sampler,
		dispatcher: dispatcher,
		resetter:   resetter,
		resetKey:   keyevent.Normalize(opts.ResetKey),
		exitKey:    keyevent.Normalize(opts.ExitKey),
		minSamples: opts.MinSamples,
	}
}

// Recording reports whether a capture session is active.
func (m *Machine) Recording() bool {
	return m.recording
}

// Run consumes key events until the exit key is released or the channel
// closes. It returns after releasing any live capture session; an in-flight
// dispatch keeps running on its own goroutine.
func (m *Machine) Run(events <-chan keyevent.Event) {
	for ev := range events {
		if m.HandleEvent(ev) {
			return
		}
	}
}

// HandleEvent processes one key edge and reports whether the exit key fired.
func (m *Machine) HandleEvent(ev keyevent.Event) (exit bool) {
	// Modifier state updates regardless of recording state.
	m.mods.OnKeyEvent(ev)

	if ev.Key == m.exitKey && ev.Edge == keyevent.Release {
		if m.recording {
			m.sampler.Disarm()
			m.recording = false
			slog.Info("exit requested mid-session, capture dropped")
		}
		return true
	}

	switch ev.Edge {
	case keyevent.Press:
		m.onPress(ev)
	case keyevent.Release:
		m.onRelease(ev)
	}
	return false
}

func (m *Machine) onPress(ev keyevent.Event) {
	if m.recording {
		// No session stacking: every press is ignored until the active
		// session's trigger is released.
		return
	}

	if ev.Key == m.resetKey {
		if m.resetter != nil {
			m.resetter.Reset()
			slog.Info("conversation memory cleared")
		}
		return
	}

	b, ok := m.bindings.Match(ev.Key, m.mods)
	if !ok {
		return
	}

	if err := m.sampler.Arm(); err != nil {
		slog.Error("failed to start capture", "mode", b.Mode.String(), "error", err)
		return
	}
	m.recording = true
	m.activeKey = ev.Key
	m.activeMode = b.Mode
	m.startedAt = ev.When
	slog.Info("recording", "mode", b.Mode.String(), "key", ev.Key)
}

func (m *Machine) onRelease(ev keyevent.Event) {
	// Only the exact key that started the session ends it.
	if !m.recording || ev.Key != m.activeKey {
		return
	}

	samples := m.sampler.Disarm()
	mode := m.activeMode
	m.recording = false
	m.activeKey = ""

	if len(samples) == 0 {
		slog.Info("no audio captured, skipping", "mode", mode.String())
		return
	}
	if len(samples) < m.minSamples {
		slog.Info("capture too short, skipping", "mode", mode.String(), "samples", len(samples))
		return
	}

	slog.Info("processing capture", "mode", mode.String(), "samples", len(samples))
	go m.dispatcher.Dispatch(mode, samples)
}
