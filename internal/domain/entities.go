package domain

import "time"

// Language selects the language the answer narrative is written in.
type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
)

// Document is one court judgment. Immutable after ingestion.
type Document struct {
	ID       string
	Title    string
	Court    string
	CaseNo   string
	Date     time.Time
	Language string
	Text     string
}

// Chunk is a contiguous span of a judgment's text sized for embedding.
type Chunk struct {
	ID          string
	DocID       string
	StartOffset int
	EndOffset   int
	Text        string
}

// EvidenceItem is a retrieved chunk surfaced to the generation step.
// Query-local, discarded after the query completes.
type EvidenceItem struct {
	Chunk    Chunk
	Document Document
	Score    float64
}

// DocumentRef is the display metadata a citation resolves to.
type DocumentRef struct {
	DocID  string  `json:"doc_id"`
	Title  string  `json:"title"`
	Court  string  `json:"court"`
	CaseNo string  `json:"case_number,omitempty"`
	Date   string  `json:"date,omitempty"`
	Score  float64 `json:"relevance_score"`
}

// AssembledContext is the bounded evidence block handed to the LLM,
// together with the anchor -> document mapping its citations resolve
// through.
type AssembledContext struct {
	Text        string
	UsedTokens  int
	CitationMap map[int]DocumentRef
}

// GroundingStatus classifies how well the answer's assertions resolve
// to assembled evidence.
type GroundingStatus string

const (
	StatusFullyGrounded     GroundingStatus = "fully_grounded"
	StatusPartiallyGrounded GroundingStatus = "partially_grounded"
	StatusUngrounded        GroundingStatus = "ungrounded"
)

// Confidence bands derive from the best retrieval similarity score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Answer is the final output of one query.
type Answer struct {
	ID         string          `json:"id"`
	Text       string          `json:"answer"`
	Citations  []DocumentRef   `json:"citations"`
	Status     GroundingStatus `json:"status"`
	Confidence Confidence      `json:"confidence"`
	Degraded   bool            `json:"degraded"`
	// Evidence carries the retrieved items on degraded answers, where
	// raw precedent is returned without narrative synthesis.
	Evidence []DocumentRef `json:"evidence,omitempty"`
	Provider string        `json:"model,omitempty"`
	Stripped int           `json:"unresolved_citations,omitempty"`
}

// Filters narrow retrieval structurally before truncation to top-k.
type Filters struct {
	Court     string
	DateFrom  time.Time
	DateUntil time.Time
}

// Matches reports whether a document passes the filters.
func (f Filters) Matches(doc Document) bool {
	if f.Court != "" && f.Court != doc.Court {
		return false
	}
	if !f.DateFrom.IsZero() && doc.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateUntil.IsZero() && doc.Date.After(f.DateUntil) {
		return false
	}
	return true
}

// Stats summarizes the indexed corpus.
type Stats struct {
	TotalDocs   int
	TotalChunks int
	Dimension   int
}
