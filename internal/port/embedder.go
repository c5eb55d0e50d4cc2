package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex answers nearest-neighbor queries over chunk vectors.
// Read-only at query time; built by the offline indexer.
type VectorIndex interface {
	// Nearest finds the k nearest chunk vectors by cosine similarity.
	Nearest(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Dimension returns the index vector dimension.
	Dimension() int

	// Generation identifies the loaded snapshot. It changes whenever a
	// rebuilt snapshot is swapped in.
	Generation() uint64
}

// VectorHit is one nearest-neighbor result.
type VectorHit struct {
	ChunkID string
	Score   float64
}
