package port

import (
	"context"
	"time"
)

// GenerationProvider is one interchangeable LLM backend. Providers
// signal rate limiting by returning an error wrapping
// domain.ErrRateLimited.
type GenerationProvider interface {
	// Complete sends the prompt and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name identifies the provider for health tracking and logging.
	Name() string
}

// CompletionRequest is a structured prompt for a generation provider.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
	Timeout   time.Duration
}
