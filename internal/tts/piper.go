package tts

import (
	"bytes"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// piperEngine drives a local piper binary. Each utterance is one process run:
// text on stdin, a WAV stream on stdout, playback through the shared sink.
type piperEngine struct {
	binary   string
	modelDir string
	voices   []Voice
	model    string
	playback Playback
	flight   flightGuard
}

// newPiperEngine locates the piper binary and scans modelDir for .onnx voice
// models. At least one model must be present for the backend to be usable.
func newPiperEngine(binary, modelDir string, playback Playback) (*piperEngine, error) {
	if binary == "" {
		binary = "piper"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, err
	}

	e := &piperEngine{binary: path, modelDir: modelDir, playback: playback}
	e.voices = scanPiperModels(modelDir)
	if len(e.voices) > 0 {
		e.model = e.voices[0].ID
	}
	return e, nil
}

// scanPiperModels lists *.onnx files in dir as selectable voices, sorted by
// name so the index order is stable across runs.
func scanPiperModels(dir string) []Voice {
	matches, err := filepath.Glob(filepath.Join(dir, "*.onnx"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	voices := make([]Voice, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".onnx")
		voices = append(voices, Voice{ID: m, Name: name})
	}
	return voices
}

func (e *piperEngine) Kind() Kind      { return KindPiper }
func (e *piperEngine) Available() bool { return e.model != "" }

func (e *piperEngine) Speak(text string) bool {
	if !e.flight.tryAcquire() {
		slog.Warn("tts speak rejected, utterance in flight", "engine", "piper")
		return false
	}
	defer e.flight.release()

	cmd := exec.Command(e.binary, "--model", e.model, "--output_file", "-")
	cmd.Stdin = strings.NewReader(text)
	var wavOut bytes.Buffer
	cmd.Stdout = &wavOut
	if err := cmd.Run(); err != nil {
		slog.Warn("piper synthesis failed", "model", e.model, "error", err)
		return false
	}

	samples, rate, err := decodeWAV(wavOut.Bytes())
	if err != nil {
		slog.Warn("piper produced undecodable audio", "error", err)
		return false
	}
	if err := e.playback.Play(samples, rate); err != nil {
		slog.Warn("piper playback failed", "error", err)
		return false
	}
	return true
}

func (e *piperEngine) Voices() []Voice { return e.voices }

func (e *piperEngine) SetVoice(index int) bool {
	if index < 0 || index >= len(e.voices) {
		return false
	}
	e.model = e.voices[index].ID
	return true
}

func (e *piperEngine) Status() string {
	if e.model == "" {
		return "no voice models in " + e.modelDir
	}
	return strings.TrimSuffix(filepath.Base(e.model), ".onnx")
}

func (e *piperEngine) Close() error { return nil }
