package tts

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiVoices is the fixed voice set of the speech endpoint.
var openaiVoices = []Voice{
	{ID: "alloy", Name: "Alloy"},
	{ID: "echo", Name: "Echo"},
	{ID: "fable", Name: "Fable"},
	{ID: "onyx", Name: "Onyx"},
	{ID: "nova", Name: "Nova"},
	{ID: "shimmer", Name: "Shimmer"},
}

// openaiEngine synthesizes through the OpenAI speech endpoint (or any server
// exposing the same API) and plays the returned WAV through the shared sink.
type openaiEngine struct {
	client   openai.Client
	model    string
	voice    string
	playback Playback
	timeout  time.Duration
	flight   flightGuard
}

func newOpenAIEngine(apiKey, baseURL, model, voice string, playback Playback) *openaiEngine {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = openaiVoices[0].ID
	}
	return &openaiEngine{
		client:   openai.NewClient(opts...),
		model:    model,
		voice:    voice,
		playback: playback,
		timeout:  30 * time.Second,
	}
}

func (e *openaiEngine) Kind() Kind      { return KindOpenAI }
func (e *openaiEngine) Available() bool { return true }

func (e *openaiEngine) Speak(text string) bool {
	if !e.flight.tryAcquire() {
		slog.Warn("tts speak rejected, utterance in flight", "engine", "openai")
		return false
	}
	defer e.flight.release()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	res, err := e.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(e.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(e.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		slog.Warn("openai speech request failed", "model", e.model, "error", err)
		return false
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		slog.Warn("openai speech response read failed", "error", err)
		return false
	}
	samples, rate, err := decodeWAV(data)
	if err != nil {
		slog.Warn("openai speech returned undecodable audio", "error", err)
		return false
	}
	if err := e.playback.Play(samples, rate); err != nil {
		slog.Warn("openai speech playback failed", "error", err)
		return false
	}
	return true
}

func (e *openaiEngine) Voices() []Voice { return openaiVoices }

func (e *openaiEngine) SetVoice(index int) bool {
	if index < 0 || index >= len(openaiVoices) {
		return false
	}
	e.voice = openaiVoices[index].ID
	return true
}

func (e *openaiEngine) Status() string { return e.model + ", voice " + e.voice }
func (e *openaiEngine) Close() error   { return nil }
