package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"nyaya/internal/domain"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketDocChunks = []byte("doc_chunks")
	bucketMeta      = []byte("meta")
	keyStats        = []byte("corpus_stats")
)

// BoltStore persists judgments and chunks in a local BoltDB file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketDocChunks, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docMeta struct {
	Title    string `json:"title"`
	Court    string `json:"court"`
	CaseNo   string `json:"case_number,omitempty"`
	Date     int64  `json:"date"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type chunkMeta struct {
	DocID       string `json:"doc_id"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

func (s *BoltStore) PutDocument(ctx context.Context, doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := docMeta{
			Title:    doc.Title,
			Court:    doc.Court,
			CaseNo:   doc.CaseNo,
			Date:     doc.Date.Unix(),
			Language: doc.Language,
			Text:     doc.Text,
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = decodeDoc(id, meta)
		return nil
	})
	return doc, err
}

func (s *BoltStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // Skip corrupted entries
			}
			docs = append(docs, decodeDoc(string(k), meta))
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) PutChunk(ctx context.Context, chunk domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := chunkMeta{
			DocID:       chunk.DocID,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
			Text:        chunk.Text,
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketChunks).Put([]byte(chunk.ID), data); err != nil {
			return err
		}
		// Secondary index doc -> chunk ids for deletion.
		key := []byte(chunk.DocID + "/" + chunk.ID)
		return tx.Bucket(bucketDocChunks).Put(key, nil)
	})
}

func (s *BoltStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		chunk = domain.Chunk{
			ID:          id,
			DocID:       meta.DocID,
			StartOffset: meta.StartOffset,
			EndOffset:   meta.EndOffset,
			Text:        meta.Text,
		}
		return nil
	})
	return chunk, err
}

func (s *BoltStore) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDocs).Delete([]byte(id)); err != nil {
			return err
		}

		prefix := []byte(id + "/")
		c := tx.Bucket(bucketDocChunks).Cursor()
		var keys [][]byte
		for k, _ := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			chunkID := k[len(prefix):]
			if err := tx.Bucket(bucketChunks).Delete(chunkID); err != nil {
				return err
			}
			if err := tx.Bucket(bucketDocChunks).Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

// UpdateStats records corpus statistics after an index build.
func (s *BoltStore) UpdateStats(ctx context.Context, stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyStats, data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeDoc(id string, meta docMeta) domain.Document {
	return domain.Document{
		ID:       id,
		Title:    meta.Title,
		Court:    meta.Court,
		CaseNo:   meta.CaseNo,
		Date:     time.Unix(meta.Date, 0).UTC(),
		Language: meta.Language,
		Text:     meta.Text,
	}
}
