package port

import (
	"context"

	"nyaya/internal/domain"
)

// DocumentStore resolves documents and chunks by ID. Populated by the
// offline indexer, read-only at query time.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc domain.Document) error

	GetDocument(ctx context.Context, id string) (domain.Document, error)

	ListDocuments(ctx context.Context) ([]domain.Document, error)

	PutChunk(ctx context.Context, chunk domain.Chunk) error

	GetChunk(ctx context.Context, id string) (domain.Chunk, error)

	DeleteDocument(ctx context.Context, id string) error

	Stats(ctx context.Context) (domain.Stats, error)

	Close() error
}
