package usecase

import (
	"fmt"
	"sort"
	"strings"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// AssembleUseCase turns the ordered evidence list into a bounded
// context block with stable citation anchors.
type AssembleUseCase struct {
	tokenizer port.Tokenizer
}

func NewAssembleUseCase(tokenizer port.Tokenizer) *AssembleUseCase {
	return &AssembleUseCase{tokenizer: tokenizer}
}

// Assemble deduplicates evidence per document (best chunk wins), then
// greedily includes items in score order until the token budget is
// reached. A chunk that would overflow the remaining budget is skipped
// whole, never split. Anchors are assigned sequentially to included
// items, so the same input always yields the same context and map.
func (u *AssembleUseCase) Assemble(items []domain.EvidenceItem, maxTokens int) (domain.AssembledContext, error) {
	result := domain.AssembledContext{
		CitationMap: make(map[int]domain.DocumentRef),
	}
	if len(items) == 0 || maxTokens <= 0 {
		return result, nil
	}

	// Keep the best-scoring chunk per document.
	bestPerDoc := make(map[string]domain.EvidenceItem, len(items))
	for _, item := range items {
		prev, seen := bestPerDoc[item.Document.ID]
		if !seen || item.Score > prev.Score {
			bestPerDoc[item.Document.ID] = item
		}
	}

	deduped := make([]domain.EvidenceItem, 0, len(bestPerDoc))
	for _, item := range bestPerDoc {
		deduped = append(deduped, item)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].Chunk.ID < deduped[j].Chunk.ID
	})

	var sb strings.Builder
	used := 0
	anchor := 0

	for _, item := range deduped {
		block := formatEvidence(anchor+1, item)
		cost := u.tokenizer.CountTokens(block)
		if used+cost > maxTokens {
			continue // ContextOverflow: skip whole, try the next
		}

		anchor++
		sb.WriteString(block)
		used += cost
		result.CitationMap[anchor] = domain.DocumentRef{
			DocID:  item.Document.ID,
			Title:  item.Document.Title,
			Court:  item.Document.Court,
			CaseNo: item.Document.CaseNo,
			Date:   formatDate(item),
			Score:  item.Score,
		}
	}

	result.Text = sb.String()
	result.UsedTokens = used
	return result, nil
}

func formatEvidence(anchor int, item domain.EvidenceItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "===== SOURCE [%d] =====\n", anchor)
	fmt.Fprintf(&sb, "Title: %s\n", item.Document.Title)
	fmt.Fprintf(&sb, "Court: %s\n", item.Document.Court)
	if item.Document.CaseNo != "" {
		fmt.Fprintf(&sb, "Case Number: %s\n", item.Document.CaseNo)
	}
	if d := formatDate(item); d != "" {
		fmt.Fprintf(&sb, "Date: %s\n", d)
	}
	fmt.Fprintf(&sb, "Relevance Score: %.3f\n\n", item.Score)
	sb.WriteString(item.Chunk.Text)
	sb.WriteString("\n\n")
	return sb.String()
}

func formatDate(item domain.EvidenceItem) string {
	if item.Document.Date.IsZero() {
		return ""
	}
	return item.Document.Date.Format("2006-01-02")
}
