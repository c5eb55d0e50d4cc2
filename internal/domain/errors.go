package domain

import "errors"

// Error kinds surfaced by the pipeline. Infrastructure failures
// (embedding, index) are fatal per query; generation exhaustion is
// absorbed into a degraded answer by the coordinator.
var (
	// ErrEmbedding covers an unreachable embedding provider or a vector
	// of the wrong dimensionality. Never retried within a request.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexUnavailable means the vector index could not serve the
	// lookup. Fatal per query.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable means every configured generation
	// provider was exhausted for this request.
	ErrGenerationUnavailable = errors.New("all generation providers unavailable")

	// ErrRateLimited marks a provider response as a rate limit. Treated
	// as transient: the provider enters cooldown and the next one is tried.
	ErrRateLimited = errors.New("provider rate limited")
)
