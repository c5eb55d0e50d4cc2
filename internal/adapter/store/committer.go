package store

import (
	"context"
	"fmt"
	"sort"
)

// SnapshotCommitter merges newly embedded vectors into the snapshot
// file. Judgments are immutable, so vectors already in the snapshot
// stay valid and are carried over; new vectors win on ID collision.
// An attached live index receives the merged snapshot immediately.
type SnapshotCommitter struct {
	path      string
	dimension int
	index     *SnapshotIndex // optional
}

func NewSnapshotCommitter(path string, dimension int, index *SnapshotIndex) *SnapshotCommitter {
	return &SnapshotCommitter{path: path, dimension: dimension, index: index}
}

func (c *SnapshotCommitter) CommitVectors(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	merged := make(map[string][]float32)
	if prev, err := ReadSnapshot(c.path); err == nil {
		if prev.dimension != c.dimension {
			return fmt.Errorf("existing snapshot dimension %d does not match configured %d; rebuild from scratch", prev.dimension, c.dimension)
		}
		for i, id := range prev.ids {
			merged[id] = prev.vectors[i]
		}
	}
	for i, id := range ids {
		merged[id] = vectors[i]
	}

	allIDs := make([]string, 0, len(merged))
	for id := range merged {
		allIDs = append(allIDs, id)
	}
	// Stable file layout across builds.
	sort.Strings(allIDs)

	allVectors := make([][]float32, len(allIDs))
	for i, id := range allIDs {
		allVectors[i] = merged[id]
	}

	snap, err := NewSnapshot(c.dimension, allIDs, allVectors)
	if err != nil {
		return err
	}
	if err := snap.WriteFile(c.path); err != nil {
		return err
	}
	if c.index != nil {
		c.index.Swap(snap)
	}
	return nil
}
