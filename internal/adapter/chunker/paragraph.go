package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/domain"
)

// ParagraphChunker splits judgment text into chunks along paragraph
// boundaries, packing paragraphs until the token budget is reached.
// Adjacent chunks overlap by a configurable number of trailing tokens
// so holdings split across a boundary stay retrievable.
type ParagraphChunker struct {
	maxTokens int
	overlap   int
	tokenizer *analyzer.Tokenizer
}

func NewParagraphChunker(maxTokens, overlap int, tokenizer *analyzer.Tokenizer) *ParagraphChunker {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	return &ParagraphChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

type paragraph struct {
	text  string
	start int
	end   int
}

// Chunk splits the document's text into paragraph-aligned chunks.
func (c *ParagraphChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	paras := splitParagraphs(doc.Text)
	if len(paras) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	i := 0
	for i < len(paras) {
		currentTokens := 0
		j := i
		for j < len(paras) {
			paraTokens := c.tokenizer.CountTokens(paras[j].text)
			if currentTokens > 0 && currentTokens+paraTokens > c.maxTokens {
				break
			}
			currentTokens += paraTokens
			j++
		}
		// A single paragraph over budget still becomes its own chunk.
		if j == i {
			j = i + 1
		}

		start := paras[i].start
		end := paras[j-1].end
		text := doc.Text[start:end]

		chunks = append(chunks, domain.Chunk{
			ID:          chunkID(doc.ID, start, end),
			DocID:       doc.ID,
			StartOffset: start,
			EndOffset:   end,
			Text:        text,
		})

		next := j - c.overlapParagraphs(paras, i, j)
		if next <= i {
			next = i + 1
		}
		i = next
	}

	return chunks, nil
}

// overlapParagraphs counts how many trailing paragraphs of the chunk
// [i, j) fit within the overlap token budget.
func (c *ParagraphChunker) overlapParagraphs(paras []paragraph, i, j int) int {
	if c.overlap <= 0 || j >= len(paras) {
		return 0
	}
	tokens := 0
	count := 0
	for k := j - 1; k > i; k-- {
		t := c.tokenizer.CountTokens(paras[k].text)
		if tokens+t > c.overlap {
			break
		}
		tokens += t
		count++
	}
	return count
}

// splitParagraphs finds non-empty paragraphs and their byte offsets.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph
	offset := 0
	for _, block := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			lead := strings.Index(block, trimmed)
			start := offset + lead
			paras = append(paras, paragraph{
				text:  trimmed,
				start: start,
				end:   start + len(trimmed),
			})
		}
		offset += len(block) + 2
	}
	return paras
}

func chunkID(docID string, start, end int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", docID, start, end)))
	return hex.EncodeToString(hash[:8])
}
