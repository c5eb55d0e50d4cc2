package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nyaya/internal/domain"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBoltStore_DocumentRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	doc := domain.Document{
		ID:       "sc_1990_412",
		Title:    "State v. Prabhu",
		Court:    "Supreme Court of India",
		CaseNo:   "Crl.A. 412/1990",
		Date:     time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		Language: "en",
		Text:     "The appellant was convicted under Section 379 IPC.",
	}
	if err := st.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetDocument(ctx, "sc_1990_412")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != doc.Title || got.Court != doc.Court || !got.Date.Equal(doc.Date) {
		t.Errorf("document round trip mismatch: %+v", got)
	}
}

func TestBoltStore_GetDocument_NotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetDocument(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestBoltStore_DeleteDocumentRemovesChunks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.PutDocument(ctx, domain.Document{ID: "d1", Text: "text"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []domain.Chunk{
		{ID: "c1", DocID: "d1", Text: "first"},
		{ID: "c2", DocID: "d1", Text: "second"},
	} {
		if err := st.PutChunk(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	if err := st.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetChunk(ctx, "c1"); err == nil {
		t.Error("expected chunk c1 to be deleted with its document")
	}
	if _, err := st.GetChunk(ctx, "c2"); err == nil {
		t.Error("expected chunk c2 to be deleted with its document")
	}
}

func TestBoltStore_Stats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := domain.Stats{TotalDocs: 2, TotalChunks: 9, Dimension: 1536}
	if err := st.UpdateStats(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := st.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("stats mismatch: want %+v, got %+v", want, got)
	}
}
