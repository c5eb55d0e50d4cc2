package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"nyaya/internal/adapter/cache"
	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// RetrieveUseCase embeds the query, asks the vector index for an
// oversampled candidate set, and filters and orders it into the final
// evidence list.
type RetrieveUseCase struct {
	embedder   port.Embedder
	index      port.VectorIndex
	docs       port.DocumentStore
	cache      *cache.QueryCache
	oversample int
	minScore   float64
}

// NewRetrieveUseCase creates a new retrieve use case. cache may be nil.
func NewRetrieveUseCase(
	embedder port.Embedder,
	index port.VectorIndex,
	docs port.DocumentStore,
	queryCache *cache.QueryCache,
	oversample int,
	minScore float64,
) *RetrieveUseCase {
	if oversample < 1 {
		oversample = 4
	}
	return &RetrieveUseCase{
		embedder:   embedder,
		index:      index,
		docs:       docs,
		cache:      queryCache,
		oversample: oversample,
		minScore:   minScore,
	}
}

// Retrieve returns at most topK evidence items ordered by similarity
// score descending, ties broken by document recency descending, then
// chunk ID ascending. An empty result means no chunk met the minimum
// similarity threshold; that is not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int, filters domain.Filters) ([]domain.EvidenceItem, error) {
	if topK <= 0 {
		return nil, nil
	}

	gen := u.index.Generation()
	if u.cache != nil {
		if items, hit := u.cache.Get(query, topK, filters, gen); hit {
			return items, nil
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector", domain.ErrEmbedding)
	}
	if dim := u.index.Dimension(); dim > 0 && len(vectors[0]) != dim {
		return nil, fmt.Errorf("%w: query vector dimension %d does not match index dimension %d", domain.ErrEmbedding, len(vectors[0]), dim)
	}

	hits, err := u.index.Nearest(ctx, vectors[0], topK*u.oversample)
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	items := make([]domain.EvidenceItem, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < u.minScore {
			continue
		}

		chunk, err := u.docs.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			// Index and store can briefly disagree around a rebuild.
			continue
		}
		doc, err := u.docs.GetDocument(ctx, chunk.DocID)
		if err != nil {
			continue
		}
		if !filters.Matches(doc) {
			continue
		}

		items = append(items, domain.EvidenceItem{
			Chunk:    chunk,
			Document: doc,
			Score:    hit.Score,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].Document.Date.Equal(items[j].Document.Date) {
			return items[i].Document.Date.After(items[j].Document.Date)
		}
		return items[i].Chunk.ID < items[j].Chunk.ID
	})

	if len(items) > topK {
		items = items[:topK]
	}

	if u.cache != nil {
		u.cache.Put(query, topK, filters, gen, items)
	}

	return items, nil
}

var _ port.Retriever = (*RetrieveUseCase)(nil)
