// Package llm holds the conversation state and the completer abstraction over
// chat model providers. The assistant keeps one rolling conversation across
// captures; dictation never touches it.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation. ImageB64 carries an optional
// base64-encoded PNG attached to a user turn; providers without vision
// support reject it.
type Message struct {
	Role     string
	Content  string
	ImageB64 string
}

// Completer produces one assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message) (string, error)
}

// Conversation is the rolling chat history shared by the conversational and
// typing modes. Safe for concurrent use; dispatches run on their own
// goroutines.
type Conversation struct {
	completer Completer
	system    string
	maxTurns  int

	mu      sync.Mutex
	history []Message
}

// NewConversation wraps a completer with history management. maxTurns bounds
// the retained user/assistant pairs; zero means unbounded.
func NewConversation(completer Completer, systemPrompt string, maxTurns int) *Conversation {
	return &Conversation{completer: completer, system: systemPrompt, maxTurns: maxTurns}
}

// Reply appends the user turn, requests a completion, and appends the
// assistant turn. On provider error the user turn is rolled back so a failed
// exchange leaves no trace in history.
func (c *Conversation) Reply(ctx context.Context, text, imageB64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, Message{Role: RoleUser, Content: text, ImageB64: imageB64})

	reply, err := c.completer.Complete(ctx, c.system, c.history)
	if err != nil {
		c.history = c.history[:len(c.history)-1]
		return "", fmt.Errorf("llm: completion: %w", err)
	}

	c.history = append(c.history, Message{Role: RoleAssistant, Content: reply})
	c.trim()
	return reply, nil
}

// Reset discards the conversation history.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) > 0 {
		slog.Info("conversation reset", "discarded_messages", len(c.history))
	}
	c.history = nil
}

// Len returns the number of retained messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// trim drops the oldest turns beyond maxTurns pairs. Caller holds mu.
func (c *Conversation) trim() {
	if c.maxTurns <= 0 {
		return
	}
	max := c.maxTurns * 2
	if len(c.history) > max {
		c.history = append(c.history[:0:0], c.history[len(c.history)-max:]...)
	}
}
