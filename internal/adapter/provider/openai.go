package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// ChatProvider calls any OpenAI-compatible chat completions endpoint.
// Groq, Together, Mistral and OpenRouter all speak this dialect.
type ChatProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewGroq(apiKeyEnv, model string) (*ChatProvider, error) {
	return NewCompatible("groq", apiKeyEnv, model, "https://api.groq.com/openai/v1")
}

func NewTogether(apiKeyEnv, model string) (*ChatProvider, error) {
	return NewCompatible("together", apiKeyEnv, model, "https://api.together.xyz/v1")
}

func NewMistral(apiKeyEnv, model string) (*ChatProvider, error) {
	return NewCompatible("mistral", apiKeyEnv, model, "https://api.mistral.ai/v1")
}

func NewOpenRouter(apiKeyEnv, model string) (*ChatProvider, error) {
	return NewCompatible("openrouter", apiKeyEnv, model, "https://openrouter.ai/api/v1")
}

func NewCompatible(name, apiKeyEnv, model, baseURL string) (*ChatProvider, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	return &ChatProvider{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		// Per-request deadlines come from the caller's context.
		client: &http.Client{},
	}, nil
}

func (p *ChatProvider) Name() string {
	return p.name
}

func (p *ChatProvider) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: request timed out: %w", p.name, err)
		}
		return "", fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", p.name, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%s: %w", p.name, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		// Server-side failures are transient from the orchestrator's
		// point of view.
		return "", fmt.Errorf("%s: server error %d: %s", p.name, resp.StatusCode, truncate(respBody, 200))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%s: API returned status %d: %s", p.name, resp.StatusCode, truncate(respBody, 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%s: parse response: %w", p.name, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%s: API error: %s", p.name, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", p.name)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}

var _ port.GenerationProvider = (*ChatProvider)(nil)
