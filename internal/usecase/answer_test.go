package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/adapter/provider"
	"nyaya/internal/domain"
	"nyaya/internal/port"
)

type stubRetriever struct {
	items []domain.EvidenceItem
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int, filters domain.Filters) ([]domain.EvidenceItem, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.items) > topK {
		return s.items[:topK], nil
	}
	return s.items, nil
}

func theftEvidence() []domain.EvidenceItem {
	return []domain.EvidenceItem{
		{
			Chunk: domain.Chunk{ID: "c1", DocID: "sc_379", Text: "Whoever, intending to take dishonestly any movable property out of the possession of any person without that person's consent, commits theft under Section 378."},
			Document: domain.Document{
				ID: "sc_379", Title: "State of Maharashtra v. Vishwanath", Court: "Supreme Court of India",
				CaseNo: "Crl.A. 412/1978", Date: time.Date(1979, 3, 12, 0, 0, 0, 0, time.UTC),
			},
			Score: 0.82,
		},
		{
			Chunk: domain.Chunk{ID: "c2", DocID: "hc_411", Text: "Dishonest misappropriation after an initially innocent taking attracts Section 403, not Section 379."},
			Document: domain.Document{
				ID: "hc_411", Title: "Ramratan v. State of Bihar", Court: "Patna High Court",
				CaseNo: "Crl.Rev. 88/1964", Date: time.Date(1965, 1, 20, 0, 0, 0, 0, time.UTC),
			},
			Score: 0.71,
		},
	}
}

func newAnswerPipeline(ret port.Retriever, providers ...port.GenerationProvider) (*AnswerUseCase, *ProviderHealth) {
	health := NewProviderHealth(time.Second, time.Minute)
	gen := NewGenerateUseCase(providers, health, 512, time.Second, nil)
	uc := NewAnswerUseCase(ret, NewAssembleUseCase(analyzer.NewTokenizer()), gen, NewVerifyUseCase(), 5, 4000, nil)
	return uc, health
}

func TestAnswer_TheftQueryGrounded(t *testing.T) {
	ret := &stubRetriever{items: theftEvidence()}
	p := provider.NewScripted("groq", provider.ScriptedResponse{
		Text: "Theft under Section 378 requires a dishonest intention at the time of taking [1]. Where the taking was innocent, later misappropriation is a different offence [2].",
	})
	uc, _ := newAnswerPipeline(ret, p)

	ans, err := uc.Answer(context.Background(), "What constitutes theft under the IPC?", domain.LangEnglish, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Degraded {
		t.Fatal("expected a full answer, got degraded")
	}
	if ans.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s, want fully_grounded", ans.Status)
	}
	if len(ans.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(ans.Citations))
	}
	if ans.Citations[0].DocID != "sc_379" {
		t.Errorf("anchor [1] resolves to %q, want sc_379", ans.Citations[0].DocID)
	}
	if ans.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high for best score 0.82", ans.Confidence)
	}
	if ans.Provider != "groq" {
		t.Errorf("provider = %q", ans.Provider)
	}
}

func TestAnswer_EmptyEvidenceNeverCallsLLM(t *testing.T) {
	ret := &stubRetriever{items: nil}
	p := provider.NewScripted("groq", provider.ScriptedResponse{Text: "must not be asked"})
	uc, _ := newAnswerPipeline(ret, p)

	ans, err := uc.Answer(context.Background(), "Question with no precedent", domain.LangEnglish, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Degraded {
		t.Error("expected degraded answer for empty evidence")
	}
	if ans.Status != domain.StatusUngrounded || ans.Confidence != domain.ConfidenceLow {
		t.Errorf("status=%s confidence=%s", ans.Status, ans.Confidence)
	}
	if p.Calls() != 0 {
		t.Errorf("LLM called %d times without grounding", p.Calls())
	}
	if !strings.Contains(ans.Text, "No relevant precedent") {
		t.Errorf("unexpected degraded text: %q", ans.Text)
	}
}

func TestAnswer_EmptyEvidenceHindi(t *testing.T) {
	uc, _ := newAnswerPipeline(&stubRetriever{})

	ans, err := uc.Answer(context.Background(), "चोरी क्या है", domain.LangHindi, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ans.Text, "मिसाल") {
		t.Errorf("expected Hindi degraded text, got %q", ans.Text)
	}
}

func TestAnswer_RetrievalFailureIsFatal(t *testing.T) {
	ret := &stubRetriever{err: domain.ErrIndexUnavailable}
	uc, _ := newAnswerPipeline(ret, provider.NewScripted("groq", provider.ScriptedResponse{Text: "x"}))

	_, err := uc.Answer(context.Background(), "any question", domain.LangEnglish, 0, domain.Filters{})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("want ErrIndexUnavailable, got %v", err)
	}
}

func TestAnswer_FallbackThroughRateLimits(t *testing.T) {
	ret := &stubRetriever{items: theftEvidence()}
	primary := provider.NewScripted("groq", provider.ScriptedResponse{Err: domain.ErrRateLimited})
	secondary := provider.NewScripted("together", provider.ScriptedResponse{Err: domain.ErrRateLimited})
	tertiary := provider.NewScripted("mistral", provider.ScriptedResponse{Text: "Theft requires dishonest intention at the time of taking [1]."})
	uc, health := newAnswerPipeline(ret, primary, secondary, tertiary)

	ans, err := uc.Answer(context.Background(), "What constitutes theft?", domain.LangEnglish, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Degraded {
		t.Fatal("tertiary provider answered; result must not be degraded")
	}
	if ans.Provider != "mistral" {
		t.Errorf("provider = %q, want mistral", ans.Provider)
	}
	if !health.InCooldown("groq") || !health.InCooldown("together") {
		t.Error("rate-limited providers should be in cooldown after the query")
	}
}

func TestAnswer_AllProvidersDownDegradesWithEvidence(t *testing.T) {
	ret := &stubRetriever{items: theftEvidence()}
	primary := provider.NewScripted("groq", provider.ScriptedResponse{Err: domain.ErrRateLimited})
	uc, _ := newAnswerPipeline(ret, primary)

	ans, err := uc.Answer(context.Background(), "What constitutes theft?", domain.LangEnglish, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Degraded {
		t.Fatal("expected degraded answer when generation is exhausted")
	}
	if len(ans.Evidence) != 2 {
		t.Errorf("evidence refs = %d, want 2", len(ans.Evidence))
	}
	if ans.Evidence[0].DocID != "sc_379" {
		t.Errorf("best evidence first, got %q", ans.Evidence[0].DocID)
	}
	if ans.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence should still reflect retrieval quality, got %s", ans.Confidence)
	}
}

func TestAnswer_HallucinatedAnchorStripped(t *testing.T) {
	ret := &stubRetriever{items: theftEvidence()}
	p := provider.NewScripted("groq", provider.ScriptedResponse{
		Text: "Dishonest intention is essential for theft [1]. A constitution bench settled the sentencing range [9].",
	})
	uc, _ := newAnswerPipeline(ret, p)

	ans, err := uc.Answer(context.Background(), "What constitutes theft?", domain.LangEnglish, 0, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(ans.Text, "[9]") {
		t.Error("fabricated anchor survived verification")
	}
	if ans.Stripped != 1 {
		t.Errorf("stripped = %d, want 1", ans.Stripped)
	}
	if ans.Status != domain.StatusPartiallyGrounded {
		t.Errorf("status = %s, want partially_grounded", ans.Status)
	}
}

func TestAnswer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ret := &stubRetriever{items: theftEvidence()}
	p := provider.NewScripted("groq", provider.ScriptedResponse{Err: ctx.Err()})
	uc, health := newAnswerPipeline(ret, p)

	_, err := uc.Answer(ctx, "What constitutes theft?", domain.LangEnglish, 0, domain.Filters{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if health.Failures("groq") != 0 {
		t.Error("cancellation counted as provider failure")
	}
}

func TestConfidenceBands(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.Confidence
	}{
		{0.80, domain.ConfidenceHigh},
		{0.66, domain.ConfidenceHigh},
		{0.60, domain.ConfidenceMedium},
		{0.55, domain.ConfidenceLow},
		{0.46, domain.ConfidenceLow},
	}
	for _, c := range cases {
		if got := confidenceFor(c.score); got != c.want {
			t.Errorf("confidenceFor(%.2f) = %s, want %s", c.score, got, c.want)
		}
	}
}
