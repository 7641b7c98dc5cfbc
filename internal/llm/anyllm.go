package llm

import (
	"context"
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// AnyLLMCompleter is the text-only completer, routed through any-llm-go so
// one config knob selects the provider. Turns carrying an image are rejected;
// vision requests go through the OpenAI-compatible completer instead.
type AnyLLMCompleter struct {
	backend anyllmlib.Provider
	model   string
}

// NewAnyLLMCompleter builds a completer for the named provider. apiKey and
// baseURL are optional; providers fall back to their environment variables
// and default endpoints.
func NewAnyLLMCompleter(providerName, model, apiKey, baseURL string) (*AnyLLMCompleter, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}

	var opts []anyllmlib.Option
	if apiKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(baseURL))
	}

	backend, err := newBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}
	return &AnyLLMCompleter{backend: backend, model: model}, nil
}

func newBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch providerName {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "ollama", "":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	}
	return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, ollama, mistral, groq", providerName)
}

// Complete implements Completer.
func (c *AnyLLMCompleter) Complete(ctx context.Context, system string, history []Message) (string, error) {
	var messages []anyllmlib.Message
	if system != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: system})
	}
	for _, m := range history {
		if m.ImageB64 != "" {
			return "", fmt.Errorf("llm: provider does not accept images; configure the vision completer")
		}
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}
