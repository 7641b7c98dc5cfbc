package tts

import "sync/atomic"

// flightGuard rejects overlapping Speak calls on backends whose underlying
// engine is not reentrant. Rejecting (rather than queueing) matches the
// push-to-talk flow: a reply that arrives while the previous one is still
// playing is stale.
type flightGuard struct {
	busy atomic.Bool
}

// tryAcquire reports whether the caller now owns the in-flight slot.
func (g *flightGuard) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *flightGuard) release() {
	g.busy.Store(false)
}
