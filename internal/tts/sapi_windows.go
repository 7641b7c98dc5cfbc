//go:build windows

package tts

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// sapiEngine drives the Windows Speech API through COM. SpVoice speaks
// synchronously and is single-threaded, so calls are serialized with a
// mutex rather than rejected: SAPI queues reliably and utterances are short.
type sapiEngine struct {
	mu     sync.Mutex
	voice  *ole.IDispatch
	voices []Voice
	rate   int // SAPI rate scale, -10..10
	volume int // 0..100
}

func newSAPIEngine(rate, volume int) (*sapiEngine, error) {
	if err := ole.CoInitialize(0); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means COM was already initialized on this thread.
		if !ok || oleErr.Code() != 1 {
			return nil, fmt.Errorf("tts: com init: %w", err)
		}
	}

	unknown, err := oleutil.CreateObject("SAPI.SpVoice")
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("tts: create SpVoice: %w", err)
	}
	voice, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("tts: SpVoice dispatch: %w", err)
	}

	e := &sapiEngine{voice: voice, rate: clampSAPIRate(rate), volume: clampVolume(volume)}
	oleutil.PutProperty(voice, "Rate", e.rate)
	oleutil.PutProperty(voice, "Volume", e.volume)
	e.voices = e.listVoices()
	return e, nil
}

func clampSAPIRate(rate int) int {
	if rate < -10 {
		return -10
	}
	if rate > 10 {
		return 10
	}
	return rate
}

func clampVolume(vol int) int {
	if vol < 0 {
		return 0
	}
	if vol > 100 {
		return 100
	}
	return vol
}

func (e *sapiEngine) Kind() Kind      { return KindSAPI }
func (e *sapiEngine) Available() bool { return e.voice != nil }

func (e *sapiEngine) Speak(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voice == nil {
		return false
	}
	// Flag 0: synchronous, plain text.
	if _, err := oleutil.CallMethod(e.voice, "Speak", text, 0); err != nil {
		slog.Warn("sapi speak failed", "error", err)
		return false
	}
	return true
}

func (e *sapiEngine) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices
}

func (e *sapiEngine) SetVoice(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voice == nil || index < 0 || index >= len(e.voices) {
		return false
	}
	tokens, err := oleutil.CallMethod(e.voice, "GetVoices")
	if err != nil {
		return false
	}
	defer tokens.Clear()
	item, err := oleutil.CallMethod(tokens.ToIDispatch(), "Item", index)
	if err != nil {
		return false
	}
	defer item.Clear()
	if _, err := oleutil.PutPropertyRef(e.voice, "Voice", item.ToIDispatch()); err != nil {
		slog.Warn("sapi voice selection failed", "index", index, "error", err)
		return false
	}
	return true
}

func (e *sapiEngine) Status() string {
	return fmt.Sprintf("rate %d, volume %d, %d voices", e.rate, e.volume, len(e.voices))
}

func (e *sapiEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voice != nil {
		e.voice.Release()
		e.voice = nil
		ole.CoUninitialize()
	}
	return nil
}

func (e *sapiEngine) listVoices() []Voice {
	tokens, err := oleutil.CallMethod(e.voice, "GetVoices")
	if err != nil {
		slog.Debug("sapi voice listing failed", "error", err)
		return nil
	}
	defer tokens.Clear()
	disp := tokens.ToIDispatch()

	count, err := oleutil.GetProperty(disp, "Count")
	if err != nil {
		return nil
	}
	n := int(count.Val)
	count.Clear()

	voices := make([]Voice, 0, n)
	for i := 0; i < n; i++ {
		item, err := oleutil.CallMethod(disp, "Item", i)
		if err != nil {
			continue
		}
		desc, err := oleutil.CallMethod(item.ToIDispatch(), "GetDescription")
		if err != nil {
			item.Clear()
			continue
		}
		name := desc.ToString()
		voices = append(voices, Voice{ID: fmt.Sprintf("sapi:%d", i), Name: name})
		desc.Clear()
		item.Clear()
	}
	return voices
}
