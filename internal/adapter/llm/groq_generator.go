package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"claims-orchestrator/internal/domain"
)

const systemPrompt = "You are an insurance claims assistant. You answer questions about " +
	"indexed claim records and policy documents using only the context provided in each request. " +
	"Be precise with claim identifiers, statuses, amounts and dates."

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GroqGenerator sends chat completions to the Groq API. Calls are throttled
// client-side to stay under the account's request-per-minute quota.
type GroqGenerator struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewGroqGenerator constructs a generator for the given model. requestsPerMinute
// bounds the client-side rate; zero disables throttling.
func NewGroqGenerator(baseURL, model, apiKey string, requestsPerMinute int, client *http.Client) *GroqGenerator {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), 1)
	}
	return &GroqGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  client,
		limiter: limiter,
	}
}

// Generate sends the prompt with recent conversation history and returns the
// assistant message.
func (g *GroqGenerator) Generate(ctx context.Context, prompt string, history []domain.ChatMessage, maxTokens int) (*domain.LLMResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	messages := make([]groqMessage, 0, len(history)+2)
	messages = append(messages, groqMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, groqMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, groqMessage{Role: "user", Content: prompt})

	reqBody := groqChatRequest{
		Model:       g.Model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("generation response carried no choices")
	}

	choice := chatResp.Choices[0]
	return &domain.LLMResponse{
		Text: strings.TrimSpace(choice.Message.Content),
		Done: choice.FinishReason == "stop",
	}, nil
}

// Version returns the wrapped model name.
func (g *GroqGenerator) Version() string {
	return g.Model
}

var _ domain.LLMClient = (*GroqGenerator)(nil)
