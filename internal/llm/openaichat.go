package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIChatCompleter talks to the OpenAI chat endpoint or any server
// exposing the same API (Ollama's /v1, llama.cpp). It is the vision path:
// user turns may carry a base64 PNG, attached as an image content part.
type OpenAIChatCompleter struct {
	client openai.Client
	model  string
}

func NewOpenAIChatCompleter(model, apiKey, baseURL string) (*OpenAIChatCompleter, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIChatCompleter{client: openai.NewClient(opts...), model: model}, nil
}

// Complete implements Completer.
func (c *OpenAIChatCompleter) Complete(ctx context.Context, system string, history []Message) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, m := range history {
		switch {
		case m.Role == RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case m.ImageB64 != "":
			messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/png;base64," + m.ImageB64,
				}),
			}))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
