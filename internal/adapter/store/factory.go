package store

import (
	"context"
	"fmt"
	"os"

	"nyaya/config"
	"nyaya/internal/port"
)

// Open creates the document store and vector index for the configured
// backend. For the bolt backend the index is the snapshot file next to
// the database; for postgres one connection pool serves both roles.
func Open(ctx context.Context, cfg config.StorageConfig, dimension int) (port.DocumentStore, port.VectorIndex, error) {
	switch cfg.Backend {
	case "", "bolt":
		docs, err := NewBoltStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}

		var index *SnapshotIndex
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			index, err = OpenSnapshotIndex(cfg.SnapshotPath)
			if err != nil {
				docs.Close()
				return nil, nil, err
			}
		} else {
			// No snapshot yet: serve an empty index until one is built.
			snap, err := NewSnapshot(dimension, nil, nil)
			if err != nil {
				docs.Close()
				return nil, nil, err
			}
			index = NewSnapshotIndex(snap)
		}
		return docs, index, nil

	case "postgres":
		pg, err := NewPostgresStore(ctx, cfg.PostgresDSN, dimension)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
