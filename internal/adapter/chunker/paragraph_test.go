package chunker

import (
	"strings"
	"testing"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/domain"
)

func TestChunk_ParagraphBoundaries(t *testing.T) {
	c := NewParagraphChunker(20, 0, analyzer.NewTokenizer())

	doc := domain.Document{
		ID: "doc1",
		Text: "The appellant was convicted under Section 379 of the Indian Penal Code.\n\n" +
			"The Sessions Court sentenced him to two years rigorous imprisonment.\n\n" +
			"On appeal the High Court reduced the sentence to one year.\n\n" +
			"This Court finds no reason to interfere with the conviction.",
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for small budget, got %d", len(chunks))
	}

	for _, ch := range chunks {
		if ch.DocID != "doc1" {
			t.Errorf("chunk %s has wrong doc id %s", ch.ID, ch.DocID)
		}
		if doc.Text[ch.StartOffset:ch.EndOffset] != ch.Text {
			t.Errorf("chunk %s offsets do not match its text", ch.ID)
		}
		if strings.TrimSpace(ch.Text) == "" {
			t.Errorf("chunk %s is empty", ch.ID)
		}
	}
}

func TestChunk_SingleLargeParagraph(t *testing.T) {
	c := NewParagraphChunker(5, 0, analyzer.NewTokenizer())

	doc := domain.Document{
		ID:   "doc1",
		Text: "A single very long paragraph that comfortably exceeds the token budget on its own and must still become a chunk.",
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
}

func TestChunk_Empty(t *testing.T) {
	c := NewParagraphChunker(100, 0, analyzer.NewTokenizer())

	chunks, err := c.Chunk(domain.Document{ID: "doc1", Text: "  \n\n  "})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(chunks))
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewParagraphChunker(30, 10, analyzer.NewTokenizer())
	doc := domain.Document{
		ID:   "doc1",
		Text: "First paragraph about theft.\n\nSecond paragraph about punishment.\n\nThird paragraph about sentencing policy.",
	}

	a, _ := c.Chunk(doc)
	b, _ := c.Chunk(doc)
	if len(a) != len(b) {
		t.Fatalf("chunking not deterministic: %d vs %d chunks", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d id differs between runs", i)
		}
	}
}
