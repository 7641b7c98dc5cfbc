package tts

import (
	"bufio"
	"bytes"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// nativeEngine speaks through the platform's stock synthesis command:
// `say` on macOS, `espeak-ng` on Linux. The command plays to the default
// output device itself, so this backend needs no Playback sink.
type nativeEngine struct {
	binary string
	rate   int // words per minute
	voices []Voice
	voice  string
	flight flightGuard
}

// newNativeEngine locates the platform voice command. rateWPM is clamped to
// the range both commands accept.
func newNativeEngine(rateWPM int) (*nativeEngine, error) {
	binary := "espeak-ng"
	if runtime.GOOS == "darwin" {
		binary = "say"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, err
	}

	e := &nativeEngine{binary: path, rate: clampRate(rateWPM)}
	e.voices = e.listVoices()
	return e, nil
}

func clampRate(wpm int) int {
	if wpm < 50 {
		return 50
	}
	if wpm > 400 {
		return 400
	}
	return wpm
}

func (e *nativeEngine) Kind() Kind      { return KindNative }
func (e *nativeEngine) Available() bool { return e.binary != "" }

func (e *nativeEngine) Speak(text string) bool {
	// say/espeak-ng hold the audio device for the whole utterance; a second
	// concurrent process garbles output, so overlapping calls are rejected.
	if !e.flight.tryAcquire() {
		slog.Warn("tts speak rejected, utterance in flight", "engine", "native")
		return false
	}
	defer e.flight.release()

	args := e.speakArgs(text)
	if err := exec.Command(e.binary, args...).Run(); err != nil {
		slog.Warn("native tts command failed", "binary", e.binary, "error", err)
		return false
	}
	return true
}

func (e *nativeEngine) speakArgs(text string) []string {
	var args []string
	if runtime.GOOS == "darwin" {
		args = append(args, "-r", strconv.Itoa(e.rate))
		if e.voice != "" {
			args = append(args, "-v", e.voice)
		}
	} else {
		args = append(args, "-s", strconv.Itoa(e.rate))
		if e.voice != "" {
			args = append(args, "-v", e.voice)
		}
	}
	return append(args, text)
}

func (e *nativeEngine) Voices() []Voice { return e.voices }

func (e *nativeEngine) SetVoice(index int) bool {
	if index < 0 || index >= len(e.voices) {
		return false
	}
	e.voice = e.voices[index].ID
	return true
}

func (e *nativeEngine) Status() string {
	if e.voice == "" {
		return "default voice, " + strconv.Itoa(e.rate) + " wpm"
	}
	return e.voice + ", " + strconv.Itoa(e.rate) + " wpm"
}

func (e *nativeEngine) Close() error { return nil }

// listVoices shells out for the voice inventory. An empty result just means
// voice cycling is unavailable; speaking with the default voice still works.
func (e *nativeEngine) listVoices() []Voice {
	var out []byte
	var err error
	if runtime.GOOS == "darwin" {
		out, err = exec.Command(e.binary, "-v", "?").Output()
	} else {
		out, err = exec.Command(e.binary, "--voices").Output()
	}
	if err != nil {
		slog.Debug("native voice listing failed", "binary", e.binary, "error", err)
		return nil
	}
	if runtime.GOOS == "darwin" {
		return parseSayVoices(out)
	}
	return parseEspeakVoices(out)
}

// parseSayVoices reads `say -v ?` lines of the form
// "Alex                en_US    # Most people recognize me by my voice."
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, Voice{ID: fields[0], Name: fields[0] + " (" + fields[1] + ")"})
	}
	return voices
}

// parseEspeakVoices reads `espeak-ng --voices` table rows, skipping the
// "Pty Language ..." header. The language token doubles as the voice id.
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{ID: fields[1], Name: fields[3] + " (" + fields[1] + ")"})
	}
	return voices
}
