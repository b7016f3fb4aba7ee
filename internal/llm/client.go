// Package llm talks to the text-generation backend. The backend is a single
// OpenAI-format chat-completions endpoint; its failures surface to callers
// as opaque errors.
package llm

import "context"

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface for completion backends.
type Client interface {
	// Complete sends messages to the backend and returns the generated text.
	Complete(ctx context.Context, messages []Message, model string) (string, error)
}
