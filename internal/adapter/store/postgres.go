package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// PostgresStore keeps judgments, chunks and embeddings in Postgres with
// the pgvector extension. It serves both the document store and the
// vector index when the corpus outgrows a local snapshot.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS judgments (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	court       TEXT NOT NULL DEFAULT '',
	case_number TEXT NOT NULL DEFAULT '',
	decided_at  TIMESTAMPTZ,
	language    TEXT NOT NULL DEFAULT 'en',
	body        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS judgment_chunks (
	id           TEXT PRIMARY KEY,
	judgment_id  TEXT NOT NULL REFERENCES judgments(id) ON DELETE CASCADE,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	body         TEXT NOT NULL,
	embedding    vector(%d)
);
CREATE INDEX IF NOT EXISTS judgment_chunks_judgment_id_idx ON judgment_chunks(judgment_id);
`

// NewPostgresStore connects and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(postgresSchema, dimension)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool, dimension: dimension}, nil
}

func (s *PostgresStore) PutDocument(ctx context.Context, doc domain.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO judgments (id, title, court, case_number, decided_at, language, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, court = EXCLUDED.court,
			case_number = EXCLUDED.case_number, decided_at = EXCLUDED.decided_at,
			language = EXCLUDED.language, body = EXCLUDED.body`,
		doc.ID, doc.Title, doc.Court, doc.CaseNo, nullableTime(doc.Date), doc.Language, doc.Text)
	if err != nil {
		return fmt.Errorf("put judgment %s: %w", doc.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	var decidedAt *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, court, case_number, decided_at, language, body
		FROM judgments WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Title, &doc.Court, &doc.CaseNo, &decidedAt, &doc.Language, &doc.Text)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get judgment %s: %w", id, err)
	}
	if decidedAt != nil {
		doc.Date = *decidedAt
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, court, case_number, decided_at, language, body
		FROM judgments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list judgments: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var decidedAt *time.Time
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Court, &doc.CaseNo, &decidedAt, &doc.Language, &doc.Text); err != nil {
			return nil, err
		}
		if decidedAt != nil {
			doc.Date = *decidedAt
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) PutChunk(ctx context.Context, chunk domain.Chunk) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO judgment_chunks (id, judgment_id, start_offset, end_offset, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			judgment_id = EXCLUDED.judgment_id, start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset, body = EXCLUDED.body`,
		chunk.ID, chunk.DocID, chunk.StartOffset, chunk.EndOffset, chunk.Text)
	if err != nil {
		return fmt.Errorf("put chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// PutVector stores a chunk's embedding. Dimensionality mismatch is a
// fatal ingestion error, never silently adjusted.
func (s *PostgresStore) PutVector(ctx context.Context, chunkID string, vector []float32) error {
	if len(vector) != s.dimension {
		return fmt.Errorf("vector dimension mismatch for chunk %s: expected %d, got %d", chunkID, s.dimension, len(vector))
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE judgment_chunks SET embedding = $2::vector WHERE id = $1`,
		chunkID, formatVector(vector))
	if err != nil {
		return fmt.Errorf("put vector for chunk %s: %w", chunkID, err)
	}
	return nil
}

// CommitVectors stores a batch of chunk embeddings.
func (s *PostgresStore) CommitVectors(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for i, id := range ids {
		if err := s.PutVector(ctx, id, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.pool.QueryRow(ctx, `
		SELECT id, judgment_id, start_offset, end_offset, body
		FROM judgment_chunks WHERE id = $1`, id).
		Scan(&chunk.ID, &chunk.DocID, &chunk.StartOffset, &chunk.EndOffset, &chunk.Text)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("get chunk %s: %w", id, err)
	}
	return chunk, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM judgments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete judgment %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM judgments), (SELECT count(*) FROM judgment_chunks)`).
		Scan(&stats.TotalDocs, &stats.TotalChunks)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("corpus stats: %w", err)
	}
	stats.Dimension = s.dimension
	return stats, nil
}

// Nearest serves cosine nearest-neighbor search through pgvector's
// <=> operator (cosine distance; similarity = 1 - distance).
func (s *PostgresStore) Nearest(ctx context.Context, query []float32, k int) ([]port.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrIndexUnavailable, s.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, 1 - (embedding <=> $1::vector) AS similarity
		FROM judgment_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2`, formatVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []port.VectorHit
	for rows.Next() {
		var hit port.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *PostgresStore) Dimension() int {
	return s.dimension
}

// Generation is constant for Postgres: rows are updated in place, and
// retrieval caching keys off it only for snapshot-backed indexes.
func (s *PostgresStore) Generation() uint64 {
	return 1
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// formatVector renders a vector in pgvector's text input format.
func formatVector(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
