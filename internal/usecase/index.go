package usecase

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"

	"nyaya/internal/adapter/chunker"
	"nyaya/internal/adapter/fs"
	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// VectorCommitter receives the embeddings produced by an index build.
// The bolt backend merges them into the snapshot file; the postgres
// backend updates chunk rows in place.
type VectorCommitter interface {
	CommitVectors(ctx context.Context, ids []string, vectors [][]float32) error
}

// IndexUseCase runs the offline corpus build: walk judgment files,
// chunk, embed, and persist. Serving reads the result; it never runs
// in the query path.
type IndexUseCase struct {
	docs      port.DocumentStore
	embedder  port.Embedder
	chunker   *chunker.ParagraphChunker
	walker    *fs.Walker
	committer VectorCommitter
	batchSize int
	progress  bool
}

func NewIndexUseCase(
	docs port.DocumentStore,
	embedder port.Embedder,
	chunk *chunker.ParagraphChunker,
	walker *fs.Walker,
	committer VectorCommitter,
	batchSize int,
	progress bool,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexUseCase{
		docs:      docs,
		embedder:  embedder,
		chunker:   chunk,
		walker:    walker,
		committer: committer,
		batchSize: batchSize,
		progress:  progress,
	}
}

// IndexResult summarizes an index build.
type IndexResult struct {
	DocsIndexed   int
	DocsSkipped   int
	ChunksCreated int
	Errors        []string
}

// Index ingests every judgment file under root. Judgments are immutable
// once ingested, so documents already in the store are skipped.
func (u *IndexUseCase) Index(ctx context.Context, root string) (*IndexResult, error) {
	result := &IndexResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	var newChunks []domain.Chunk

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := fs.LoadJudgment(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if _, err := u.docs.GetDocument(ctx, doc.ID); err == nil {
			result.DocsSkipped++
			continue
		}

		chunks, err := u.chunker.Chunk(doc)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %s: %v", doc.ID, err))
			continue
		}
		if len(chunks) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("judgment %s produced no chunks", doc.ID))
			continue
		}

		if err := u.docs.PutDocument(ctx, doc); err != nil {
			return result, fmt.Errorf("store judgment %s: %w", doc.ID, err)
		}
		for _, c := range chunks {
			if err := u.docs.PutChunk(ctx, c); err != nil {
				return result, fmt.Errorf("store chunk %s: %w", c.ID, err)
			}
		}

		newChunks = append(newChunks, chunks...)
		result.DocsIndexed++
		result.ChunksCreated += len(chunks)
	}

	if len(newChunks) > 0 {
		if err := u.embedAndCommit(ctx, newChunks); err != nil {
			return result, err
		}
	}

	if updater, ok := u.docs.(interface {
		UpdateStats(ctx context.Context, stats domain.Stats) error
	}); ok {
		stats := domain.Stats{Dimension: u.embedder.Dimension()}
		if prev, err := u.docs.Stats(ctx); err == nil {
			stats.TotalDocs = prev.TotalDocs
			stats.TotalChunks = prev.TotalChunks
		}
		stats.TotalDocs += result.DocsIndexed
		stats.TotalChunks += result.ChunksCreated
		if err := updater.UpdateStats(ctx, stats); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("update stats: %v", err))
		}
	}

	return result, nil
}

// embedAndCommit embeds new chunks in batches and hands all vectors to
// the committer in one atomic commit.
func (u *IndexUseCase) embedAndCommit(ctx context.Context, chunks []domain.Chunk) error {
	var bar *progressbar.ProgressBar
	if u.progress {
		bar = progressbar.Default(int64(len(chunks)), "embedding")
	}

	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	dimension := u.embedder.Dimension()

	for start := 0; start < len(chunks); start += u.batchSize {
		end := start + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embedded, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(embedded) != len(batch) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrEmbedding, len(embedded), len(batch))
		}

		for i, vec := range embedded {
			// Dimension mismatch is a fatal ingestion error.
			if len(vec) != dimension {
				return fmt.Errorf("%w: chunk %s: expected dimension %d, got %d", domain.ErrEmbedding, batch[i].ID, dimension, len(vec))
			}
			ids = append(ids, batch[i].ID)
			vectors = append(vectors, vec)
		}

		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}

	return u.committer.CommitVectors(ctx, ids, vectors)
}
