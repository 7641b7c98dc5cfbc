package hotkey

import (
	"sync"
	"testing"
	"time"

	"github.com/ewoodruff/holdvox/internal/keyevent"
)

// fakeSampler records arm/disarm calls and returns canned samples.
type fakeSampler struct {
	armed    bool
	armCalls int
	samples  []float32
	armErr   error
}

func (f *fakeSampler) Arm() error {
	if f.armErr != nil {
		return f.armErr
	}
	f.armed = true
	f.armCalls++
	return nil
}

func (f *fakeSampler) Disarm() []float32 {
	f.armed = false
	return f.samples
}

// fakeDispatcher collects dispatched captures.
type fakeDispatcher struct {
	mu       sync.Mutex
	modes    []Mode
	captures [][]float32
	seen     chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{seen: make(chan struct{}, 16)}
}

func (f *fakeDispatcher) Dispatch(mode Mode, samples []float32) {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.captures = append(f.captures, samples)
	f.mu.Unlock()
	f.seen <- struct{}{}
}

func (f *fakeDispatcher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.seen:
	case <-time.After(time.Second):
		t.Fatal("dispatch never happened")
	}
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.modes)
}

type fakeResetter struct{ calls int }

func (f *fakeResetter) Reset() { f.calls++ }

func defaultTable(t *testing.T) *BindingTable {
	t.Helper()
	specs := []struct {
		spec string
		mode Mode
	}{
		{"ctrl+f2", Conversation},
		{"ctrl+f1", Dictation},
		{"f15", AITyping},
		{"f14", ScreenAI},
	}
	var bindings []Binding
	for _, s := range specs {
		b, err := ParseBinding(s.spec, s.mode)
		if err != nil {
			t.Fatalf("ParseBinding(%q) error = %v", s.spec, err)
		}
		bindings = append(bindings, b)
	}
	return NewBindingTable(bindings)
}

func press(key string) keyevent.Event {
	return keyevent.Event{Key: key, Edge: keyevent.Press, When: time.Now()}
}

func release(key string) keyevent.Event {
	return keyevent.Event{Key: key, Edge: keyevent.Release, When: time.Now()}
}

func newTestMachine(t *testing.T, sampler *fakeSampler, d *fakeDispatcher, r Resetter) *Machine {
	t.Helper()
	return NewMachine(defaultTable(t), sampler, d, r, Options{
		ResetKey: "menu",
		ExitKey:  "esc",
	})
}

func TestModifierQualifiedTriggerStartsSession(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	d := newFakeDispatcher()
	m := newTestMachine(t, sampler, d, nil)

	m.HandleEvent(press("ctrl"))
	m.HandleEvent(press("f2"))

	if !m.Recording() {
		t.Fatal("ctrl+f2 should start a session")
	}
	if sampler.armCalls != 1 {
		t.Errorf("armCalls = %d, want 1", sampler.armCalls)
	}

	m.HandleEvent(release("f2"))
	if m.Recording() {
		t.Fatal("releasing the starting trigger should end the session")
	}
	d.wait(t)
	if d.modes[0] != Conversation {
		t.Errorf("dispatched mode = %v, want Conversation", d.modes[0])
	}
}

func TestTriggerWithoutModifierDoesNotStart(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	m := newTestMachine(t, sampler, newFakeDispatcher(), nil)

	// f2 is only bound with ctrl; pressing it bare must not record.
	m.HandleEvent(press("f2"))
	if m.Recording() {
		t.Fatal("f2 without ctrl must not start a session")
	}
	if sampler.armCalls != 0 {
		t.Errorf("armCalls = %d, want 0", sampler.armCalls)
	}
}

func TestStandaloneBindingAppliesWhenModifierNotHeld(t *testing.T) {
	// f1 bound both as ctrl+f1 (Dictation) and standalone (AITyping here to
	// make the two distinguishable).
	b1, _ := ParseBinding("ctrl+f1", Dictation)
	b2, _ := ParseBinding("f1", AITyping)
	table := NewBindingTable([]Binding{b1, b2})
	sampler := &fakeSampler{samples: []float32{0.1}}
	d := newFakeDispatcher()
	m := NewMachine(table, sampler, d, nil, Options{ResetKey: "menu", ExitKey: "esc"})

	// Without ctrl: standalone binding.
	m.HandleEvent(press("f1"))
	if !m.Recording() {
		t.Fatal("standalone f1 should start a session")
	}
	m.HandleEvent(release("f1"))
	d.wait(t)

	// With ctrl: the modifier-qualified binding takes priority.
	m.HandleEvent(press("ctrl"))
	m.HandleEvent(press("f1"))
	m.HandleEvent(release("f1"))
	d.wait(t)

	if d.modes[0] != AITyping || d.modes[1] != Dictation {
		t.Errorf("modes = %v, want [AITyping Dictation]", d.modes)
	}
}

func TestAtMostOneSession(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	d := newFakeDispatcher()
	m := newTestMachine(t, sampler, d, nil)

	m.HandleEvent(press("f15"))
	if !m.Recording() {
		t.Fatal("f15 should start a session")
	}

	// Conflicting triggers during an active session are ignored, not queued.
	m.HandleEvent(press("f14"))
	m.HandleEvent(press("ctrl"))
	m.HandleEvent(press("f2"))
	if sampler.armCalls != 1 {
		t.Errorf("armCalls = %d, want 1 (no session stacking)", sampler.armCalls)
	}

	// Releasing a key that did not start the session leaves it open.
	m.HandleEvent(release("f14"))
	m.HandleEvent(release("f2"))
	if !m.Recording() {
		t.Fatal("only the starting trigger's release may end the session")
	}

	m.HandleEvent(release("f15"))
	if m.Recording() {
		t.Fatal("session should have ended")
	}
	d.wait(t)
	if n := d.count(); n != 1 {
		t.Errorf("dispatch count = %d, want 1", n)
	}
}

func TestModifierTrackingContinuesWhileRecording(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	d := newFakeDispatcher()
	m := newTestMachine(t, sampler, d, nil)

	m.HandleEvent(press("ctrl"))
	m.HandleEvent(press("f2"))
	m.HandleEvent(release("ctrl")) // released mid-session, must be tracked
	m.HandleEvent(release("f2"))
	d.wait(t)

	// ctrl is no longer held, so ctrl+f1 must not match now.
	m.HandleEvent(press("f1"))
	if m.Recording() {
		t.Fatal("ctrl state should have been cleared during the session")
	}
}

func TestEmptyCaptureSkipsDispatch(t *testing.T) {
	sampler := &fakeSampler{samples: nil}
	d := newFakeDispatcher()
	m := newTestMachine(t, sampler, d, nil)

	m.HandleEvent(press("f15"))
	m.HandleEvent(release("f15"))

	time.Sleep(20 * time.Millisecond)
	if n := d.count(); n != 0 {
		t.Errorf("dispatch count = %d, want 0 for empty buffer", n)
	}
}

func TestShortCaptureSkipsDispatch(t *testing.T) {
	sampler := &fakeSampler{samples: make([]float32, 100)}
	d := newFakeDispatcher()
	m := NewMachine(defaultTable(t), sampler, d, nil, Options{
		ResetKey:   "menu",
		ExitKey:    "esc",
		MinSamples: 4800, // 0.3s at 16kHz
	})

	m.HandleEvent(press("f15"))
	m.HandleEvent(release("f15"))

	time.Sleep(20 * time.Millisecond)
	if n := d.count(); n != 0 {
		t.Errorf("dispatch count = %d, want 0 for too-short capture", n)
	}
}

func TestResetKeyWhileIdle(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	r := &fakeResetter{}
	m := newTestMachine(t, sampler, newFakeDispatcher(), r)

	m.HandleEvent(press("menu"))
	if r.calls != 1 {
		t.Errorf("reset calls = %d, want 1", r.calls)
	}
	if m.Recording() {
		t.Fatal("reset key must not create a capture session")
	}
}

func TestResetKeyIgnoredWhileRecording(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	r := &fakeResetter{}
	m := newTestMachine(t, sampler, newFakeDispatcher(), r)

	m.HandleEvent(press("f15"))
	m.HandleEvent(press("menu"))
	if r.calls != 0 {
		t.Errorf("reset calls = %d, want 0 during recording", r.calls)
	}
}

func TestExitKeyTerminatesRun(t *testing.T) {
	sampler := &fakeSampler{samples: []float32{0.1}}
	m := newTestMachine(t, sampler, newFakeDispatcher(), nil)

	events := make(chan keyevent.Event, 4)
	events <- press("f15") // mid-session exit
	events <- release("esc")

	done := make(chan struct{})
	go func() {
		m.Run(events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on exit key")
	}
	if m.Recording() {
		t.Error("exit should release the capture session")
	}
	if sampler.armed {
		t.Error("sampler should be disarmed after exit")
	}
}

func TestArmFailureLeavesMachineIdle(t *testing.T) {
	sampler := &fakeSampler{armErr: errArm}
	m := newTestMachine(t, sampler, newFakeDispatcher(), nil)

	m.HandleEvent(press("f15"))
	if m.Recording() {
		t.Fatal("machine must stay idle if capture cannot start")
	}

	// The machine remains healthy for the next trigger.
	sampler.armErr = nil
	m.HandleEvent(press("f15"))
	if !m.Recording() {
		t.Fatal("machine should recover on the next trigger")
	}
}

var errArm = errorString("device busy")

type errorString string

func (e errorString) Error() string { return string(e) }
