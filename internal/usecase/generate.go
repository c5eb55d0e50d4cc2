package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// GenerateUseCase routes a generation request across an ordered list of
// providers, skipping those in cooldown and falling through on rate
// limits and transient failures.
type GenerateUseCase struct {
	providers []port.GenerationProvider
	health    *ProviderHealth
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

func NewGenerateUseCase(
	providers []port.GenerationProvider,
	health *ProviderHealth,
	maxTokens int,
	timeout time.Duration,
	logger *zap.Logger,
) *GenerateUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateUseCase{
		providers: providers,
		health:    health,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Generate returns the raw model answer and the name of the provider
// that produced it. All providers exhausted or cooling down yields
// domain.ErrGenerationUnavailable. A cancelled caller context is
// returned as-is: cancellation is not a provider failure.
func (u *GenerateUseCase) Generate(ctx context.Context, question string, assembled domain.AssembledContext, lang domain.Language) (string, string, error) {
	if len(u.providers) == 0 {
		return "", "", domain.ErrGenerationUnavailable
	}

	system, user, err := buildPrompt(question, assembled.Text, lang)
	if err != nil {
		return "", "", err
	}

	req := port.CompletionRequest{
		System:    system,
		User:      user,
		MaxTokens: u.maxTokens,
		Timeout:   u.timeout,
	}

	var lastErr error
	for _, p := range u.providers {
		name := p.Name()

		seq, available := u.health.Acquire(name)
		if !available {
			u.logger.Debug("provider in cooldown, skipping", zap.String("provider", name))
			continue
		}

		text, err := p.Complete(ctx, req)
		if err == nil {
			u.health.MarkSuccess(name, seq)
			return text, name, nil
		}

		// The caller walked away; don't penalize the provider for it.
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		lastErr = err
		u.health.MarkFailure(name, seq)
		if errors.Is(err, domain.ErrRateLimited) {
			u.logger.Warn("provider rate limited, falling through",
				zap.String("provider", name),
				zap.Int("consecutive_failures", u.health.Failures(name)))
		} else {
			u.logger.Warn("provider failed, falling through",
				zap.String("provider", name),
				zap.Error(err))
		}
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: last error: %v", domain.ErrGenerationUnavailable, lastErr)
	}
	return "", "", domain.ErrGenerationUnavailable
}
