package domain

import "context"

// ChatMessage is one turn of conversation history passed to the generator.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// LLMClient defines the capability to send prompts to a hosted generation
// model and receive textual responses.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, history []ChatMessage, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the model output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}
