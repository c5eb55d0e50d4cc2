package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nyaya/internal/domain"
	"nyaya/internal/port"
)

// QueryState names the coordinator's per-query states.
type QueryState string

const (
	StateReceived   QueryState = "received"
	StateRetrieving QueryState = "retrieving"
	StateAssembling QueryState = "assembling"
	StateGenerating QueryState = "generating"
	StateVerifying  QueryState = "verifying"
	StateCompleted  QueryState = "completed"
	StateDegraded   QueryState = "degraded"
)

// AnswerUseCase sequences retrieval, assembly, generation and
// verification into one request/response cycle.
//
// Failure policy: retrieval infrastructure failures are returned to the
// caller as errors. Everything downstream degrades to an evidence-only
// answer instead, since raw precedent still has user value.
type AnswerUseCase struct {
	retriever port.Retriever
	assembler *AssembleUseCase
	generator *GenerateUseCase
	verifier  *VerifyUseCase
	logger    *zap.Logger
	topK      int
	maxTokens int
}

func NewAnswerUseCase(
	retriever port.Retriever,
	assembler *AssembleUseCase,
	generator *GenerateUseCase,
	verifier *VerifyUseCase,
	topK int,
	maxTokens int,
	logger *zap.Logger,
) *AnswerUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerUseCase{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		verifier:  verifier,
		logger:    logger,
		topK:      topK,
		maxTokens: maxTokens,
	}
}

// Answer runs the full pipeline for one question. topK <= 0 uses the
// configured default.
func (u *AnswerUseCase) Answer(ctx context.Context, question string, lang domain.Language, topK int, filters domain.Filters) (domain.Answer, error) {
	if topK <= 0 {
		topK = u.topK
	}
	if lang == "" {
		lang = domain.LangEnglish
	}

	queryID := uuid.NewString()
	log := u.logger.With(zap.String("query_id", queryID))
	log.Info("query received", zap.Int("top_k", topK))

	state := StateRetrieving
	evidence, err := u.retriever.Retrieve(ctx, question, topK, filters)
	if err != nil {
		// Infrastructure failure: fatal for the query, never retried
		// here because the same input cannot change the outcome.
		log.Error("retrieval failed", zap.String("state", string(state)), zap.Error(err))
		return domain.Answer{}, err
	}

	if len(evidence) == 0 {
		log.Info("no evidence above threshold", zap.String("state", string(StateDegraded)))
		return u.noPrecedentAnswer(queryID, lang), nil
	}

	state = StateAssembling
	assembled, err := u.assembler.Assemble(evidence, u.maxTokens)
	if err != nil {
		log.Warn("assembly failed", zap.String("state", string(state)), zap.Error(err))
		return u.degradedAnswer(queryID, evidence), nil
	}

	state = StateGenerating
	raw, providerName, err := u.generator.Generate(ctx, question, assembled, lang)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Answer{}, ctx.Err()
		}
		if !errors.Is(err, domain.ErrGenerationUnavailable) {
			log.Warn("generation failed", zap.String("state", string(state)), zap.Error(err))
		} else {
			log.Warn("all providers exhausted", zap.String("state", string(state)))
		}
		return u.degradedAnswer(queryID, evidence), nil
	}

	state = StateVerifying
	verified := u.verifier.Verify(raw, assembled.CitationMap)
	if verified.Stripped > 0 {
		log.Warn("hallucinated citations stripped",
			zap.String("state", string(state)),
			zap.Int("stripped", verified.Stripped))
	}

	answer := domain.Answer{
		ID:         queryID,
		Text:       verified.Text,
		Citations:  verified.Citations,
		Status:     verified.Status,
		Confidence: confidenceFor(evidence[0].Score),
		Provider:   providerName,
		Stripped:   verified.Stripped,
	}
	log.Info("query completed",
		zap.String("state", string(StateCompleted)),
		zap.String("status", string(answer.Status)),
		zap.String("provider", providerName),
		zap.Int("citations", len(answer.Citations)))
	return answer, nil
}

// noPrecedentAnswer is the degraded terminal for empty evidence. The
// LLM is never invoked without grounding.
func (u *AnswerUseCase) noPrecedentAnswer(queryID string, lang domain.Language) domain.Answer {
	text := "No relevant precedent was found in the judgment corpus for this question. " +
		"Try rephrasing, or consult a legal professional."
	if lang == domain.LangHindi {
		text = "इस प्रश्न के लिए निर्णय संग्रह में कोई प्रासंगिक न्यायिक मिसाल नहीं मिली। " +
			"प्रश्न को दोबारा लिखकर देखें, या किसी विधि विशेषज्ञ से परामर्श करें।"
	}
	return domain.Answer{
		ID:         queryID,
		Text:       text,
		Citations:  []domain.DocumentRef{},
		Status:     domain.StatusUngrounded,
		Confidence: domain.ConfidenceLow,
		Degraded:   true,
	}
}

// degradedAnswer returns the retrieved evidence without narrative
// synthesis.
func (u *AnswerUseCase) degradedAnswer(queryID string, evidence []domain.EvidenceItem) domain.Answer {
	refs := make([]domain.DocumentRef, 0, len(evidence))
	for _, item := range evidence {
		refs = append(refs, domain.DocumentRef{
			DocID:  item.Document.ID,
			Title:  item.Document.Title,
			Court:  item.Document.Court,
			CaseNo: item.Document.CaseNo,
			Date:   formatDate(item),
			Score:  item.Score,
		})
	}
	return domain.Answer{
		ID:         queryID,
		Text:       fmt.Sprintf("Answer synthesis is temporarily unavailable. %d relevant judgments were found; see the evidence list.", len(refs)),
		Citations:  []domain.DocumentRef{},
		Status:     domain.StatusUngrounded,
		Confidence: confidenceFor(evidence[0].Score),
		Degraded:   true,
		Evidence:   refs,
	}
}

// confidenceFor bands the best similarity score.
func confidenceFor(bestScore float64) domain.Confidence {
	switch {
	case bestScore > 0.65:
		return domain.ConfidenceHigh
	case bestScore > 0.55:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
