// Package dispatch routes a finished capture to its mode's pipeline:
// transcription first, then injection, conversation, or the vision path.
// Each dispatch runs on its own goroutine; a panic or error in one capture
// must never take down the hotkey loop.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ewoodruff/holdvox/internal/hotkey"
)

// fallbackReply is spoken when the conversational pipeline fails, so the
// user gets feedback instead of silence.
const fallbackReply = "Sorry, I couldn't process that request."

// Transcriber converts captured samples to text.
type Transcriber interface {
	Process(samples []float32) (string, error)
}

// Conversation produces an assistant reply, optionally grounded on a
// base64 PNG screenshot.
type Conversation interface {
	Reply(ctx context.Context, text, imageB64 string) (string, error)
}

// ScreenCapturer returns the current display as base64-encoded PNG.
type ScreenCapturer interface {
	Capture() (string, error)
}

// Injector types text into the focused application.
type Injector interface {
	Inject(text string) error
}

// Speaker voices text. The return mirrors the speech service: false means
// the utterance was not played.
type Speaker interface {
	Speak(text string) bool
}

// Dispatcher executes one capture's pipeline per Dispatch call.
type Dispatcher struct {
	transcriber  Transcriber
	conversation Conversation
	screen       ScreenCapturer
	injector     Injector
	speaker      Speaker
	timeout      time.Duration
}

// New wires the dispatcher. timeout bounds each LLM exchange; zero selects
// a generous default.
func New(tr Transcriber, conv Conversation, screen ScreenCapturer, inj Injector, spk Speaker, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{
		transcriber:  tr,
		conversation: conv,
		screen:       screen,
		injector:     inj,
		speaker:      spk,
		timeout:      timeout,
	}
}

// Dispatch runs the pipeline for one finished capture. It is the goroutine
// boundary: all errors end here, logged, and panics are contained.
func (d *Dispatcher) Dispatch(mode hotkey.Mode, samples []float32) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch panicked", "mode", mode.String(), "panic", r)
		}
	}()

	start := time.Now()
	text, err := d.transcriber.Process(samples)
	if err != nil {
		slog.Error("transcription failed", "mode", mode.String(), "error", err)
		return
	}
	if text == "" {
		slog.Info("empty transcript, nothing to do", "mode", mode.String())
		return
	}
	slog.Info("transcribed",
		"mode", mode.String(),
		"chars", len(text),
		"elapsed", time.Since(start).Round(time.Millisecond))

	switch mode {
	case hotkey.Dictation:
		d.dictate(text)
	case hotkey.Conversation:
		d.converse(text)
	case hotkey.AITyping:
		d.typeReply(text, "")
	case hotkey.ScreenAI:
		d.screenReply(text)
	default:
		slog.Error("unknown dispatch mode", "mode", int(mode))
	}
}

// dictate injects the raw transcript with a trailing space so consecutive
// dictations join cleanly.
func (d *Dispatcher) dictate(text string) {
	if err := d.injector.Inject(text + " "); err != nil {
		slog.Error("dictation inject failed", "error", err)
	}
}

// converse asks the assistant and speaks the reply. A failed exchange still
// produces audible feedback.
func (d *Dispatcher) converse(text string) {
	reply, err := d.reply(text, "")
	if err != nil {
		slog.Error("conversation failed", "error", err)
		d.speaker.Speak(fallbackReply)
		return
	}
	d.speaker.Speak(reply)
}

// typeReply asks the assistant and types the reply where the cursor is.
func (d *Dispatcher) typeReply(text, imageB64 string) {
	reply, err := d.reply(text, imageB64)
	if err != nil {
		slog.Error("ai typing failed", "error", err)
		return
	}
	if err := d.injector.Inject(reply + " "); err != nil {
		slog.Error("reply inject failed", "error", err)
	}
}

// screenReply grabs the display first, then runs the typing pipeline with
// the screenshot attached. A failed capture degrades to text-only.
func (d *Dispatcher) screenReply(text string) {
	imageB64, err := d.screen.Capture()
	if err != nil {
		slog.Warn("screenshot failed, continuing without image", "error", err)
		imageB64 = ""
	}
	d.typeReply(text, imageB64)
}

func (d *Dispatcher) reply(text, imageB64 string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	reply, err := d.conversation.Reply(ctx, text, imageB64)
	if err != nil {
		return "", err
	}
	return stripAssistantPrefix(reply), nil
}

// stripAssistantPrefix drops a leading "Assistant:" label some models echo
// back in their replies.
func stripAssistantPrefix(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if rest, ok := strings.CutPrefix(trimmed, "Assistant:"); ok {
		return strings.TrimSpace(rest)
	}
	return trimmed
}
