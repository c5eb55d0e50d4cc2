package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// Snapshot is one complete, immutable vector index build. Queries only
// ever see a whole snapshot; rebuilds produce a new one that is swapped
// in atomically.
type Snapshot struct {
	dimension int
	ids       []string
	vectors   [][]float32
}

// NewSnapshot builds an in-memory snapshot from parallel id/vector
// slices. Every vector must match the declared dimension.
func NewSnapshot(dimension int, ids []string, vectors [][]float32) (*Snapshot, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector %s dimension mismatch: expected %d, got %d", ids[i], dimension, len(v))
		}
	}
	return &Snapshot{dimension: dimension, ids: ids, vectors: vectors}, nil
}

// Len returns the number of vectors in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// WriteFile persists the snapshot. Format: dimension (4 bytes), count
// (4 bytes), then per vector: idLen (4), id bytes, dimension*4 float
// bytes. Written to a temp file and renamed so readers never observe a
// partial snapshot.
func (s *Snapshot) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	buf := make([]byte, 4)
	writeU32 := func(v uint32) error {
		binary.LittleEndian.PutUint32(buf, v)
		_, err := tmp.Write(buf)
		return err
	}

	if err := writeU32(uint32(s.dimension)); err != nil {
		return err
	}
	if err := writeU32(uint32(len(s.ids))); err != nil {
		return err
	}
	for i, id := range s.ids {
		if err := writeU32(uint32(len(id))); err != nil {
			return err
		}
		if _, err := tmp.Write([]byte(id)); err != nil {
			return err
		}
		vecBytes := make([]byte, 4*s.dimension)
		for j, f := range s.vectors[i] {
			binary.LittleEndian.PutUint32(vecBytes[j*4:], math.Float32bits(f))
		}
		if _, err := tmp.Write(vecBytes); err != nil {
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadSnapshot loads a snapshot file written by WriteFile.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("snapshot file too short: %s", path)
	}

	dimension := int(binary.LittleEndian.Uint32(data[0:4]))
	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if dimension <= 0 {
		return nil, fmt.Errorf("snapshot has invalid dimension %d", dimension)
	}
	// Each entry is at least an id length field plus the vector, so a
	// count the file cannot hold means a corrupt header.
	if maxEntries := (len(data) - 8) / (4 + 4*dimension); count > maxEntries {
		return nil, fmt.Errorf("snapshot header claims %d entries, file holds at most %d", count, maxEntries)
	}

	ids := make([]string, 0, count)
	vectors := make([][]float32, 0, count)
	off := 8
	for n := 0; n < count; n++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("snapshot truncated at entry %d", n)
		}
		idLen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+idLen+4*dimension > len(data) {
			return nil, fmt.Errorf("snapshot truncated at entry %d", n)
		}
		ids = append(ids, string(data[off:off+idLen]))
		off += idLen

		vec := make([]float32, dimension)
		for j := 0; j < dimension; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors = append(vectors, vec)
	}

	return &Snapshot{dimension: dimension, ids: ids, vectors: vectors}, nil
}

// SnapshotIndex serves nearest-neighbor queries over the currently
// loaded snapshot. Swap installs a new snapshot without blocking
// in-flight queries.
type SnapshotIndex struct {
	snap atomic.Pointer[Snapshot]
	gen  atomic.Uint64
}

// NewSnapshotIndex creates an index serving the given snapshot.
func NewSnapshotIndex(snap *Snapshot) *SnapshotIndex {
	idx := &SnapshotIndex{}
	idx.Swap(snap)
	return idx
}

// OpenSnapshotIndex loads the snapshot file at path.
func OpenSnapshotIndex(path string) (*SnapshotIndex, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return NewSnapshotIndex(snap), nil
}

// Swap installs a new snapshot and bumps the generation.
func (idx *SnapshotIndex) Swap(snap *Snapshot) {
	idx.snap.Store(snap)
	idx.gen.Add(1)
}

func (idx *SnapshotIndex) Generation() uint64 {
	return idx.gen.Load()
}

func (idx *SnapshotIndex) Dimension() int {
	snap := idx.snap.Load()
	if snap == nil {
		return 0
	}
	return snap.dimension
}

// Nearest finds the k nearest vectors by cosine similarity over the
// current snapshot.
func (idx *SnapshotIndex) Nearest(ctx context.Context, query []float32, k int) ([]port.VectorHit, error) {
	snap := idx.snap.Load()
	if snap == nil {
		return nil, domain.ErrIndexUnavailable
	}
	if len(query) != snap.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrIndexUnavailable, snap.dimension, len(query))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(snap.ids) == 0 {
		return nil, nil
	}

	hits := make([]port.VectorHit, len(snap.ids))
	for i, vec := range snap.vectors {
		hits[i] = port.VectorHit{
			ChunkID: snap.ids[i],
			Score:   cosineSimilarity(query, vec),
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Watch reloads the snapshot file whenever it is rewritten, until ctx
// is cancelled. The indexer writes via rename, which arrives as a
// Create event.
func (idx *SnapshotIndex) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path || !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				snap, err := ReadSnapshot(path)
				if err != nil {
					logger.Warn("snapshot reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				idx.Swap(snap)
				logger.Info("snapshot reloaded",
					zap.String("path", path),
					zap.Int("vectors", snap.Len()),
					zap.Uint64("generation", idx.Generation()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("snapshot watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
