package port

import (
	"context"

	"nyaya/internal/domain"
)

// Retriever produces an ordered evidence set for a query.
type Retriever interface {
	// Retrieve returns at most topK evidence items ordered by relevance.
	// An empty result means insufficient grounding, not failure.
	Retrieve(ctx context.Context, query string, topK int, filters domain.Filters) ([]domain.EvidenceItem, error)
}
