package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"nyaya/internal/domain"
)

// VerifyUseCase checks that every anchor the model emitted resolves to
// an entry in the citation map. Anchors that do not resolve are
// hallucinated citations: they are stripped from the text and counted.
//
// Verification is purely structural. It detects fabricated references,
// not paraphrases that misstate what the cited judgment says.
type VerifyUseCase struct{}

func NewVerifyUseCase() *VerifyUseCase {
	return &VerifyUseCase{}
}

var (
	anchorPattern   = regexp.MustCompile(`\[(\d+)\]`)
	danglingPunct   = regexp.MustCompile(`[ \t]+([.,;)])`)
	collapsedSpaces = regexp.MustCompile(`[ \t]{2,}`)
)

// VerifiedAnswer is the verifier's output.
type VerifiedAnswer struct {
	Text      string
	Citations []domain.DocumentRef
	Status    domain.GroundingStatus
	Stripped  int
}

// Verify resolves the anchors in rawAnswer against citationMap.
func (u *VerifyUseCase) Verify(rawAnswer string, citationMap map[int]domain.DocumentRef) VerifiedAnswer {
	stripped := 0
	seen := make(map[int]bool)
	var cited []int

	text := anchorPattern.ReplaceAllStringFunc(rawAnswer, func(match string) string {
		n, err := strconv.Atoi(anchorPattern.FindStringSubmatch(match)[1])
		if err != nil {
			stripped++
			return ""
		}
		if _, ok := citationMap[n]; !ok {
			stripped++
			return ""
		}
		if !seen[n] {
			seen[n] = true
			cited = append(cited, n)
		}
		return match
	})

	// Tidy whitespace left behind by stripped anchors.
	if stripped > 0 {
		text = danglingPunct.ReplaceAllString(text, "$1")
		text = collapsedSpaces.ReplaceAllString(text, " ")
	}

	sort.Ints(cited)
	citations := make([]domain.DocumentRef, 0, len(cited))
	for _, n := range cited {
		citations = append(citations, citationMap[n])
	}

	return VerifiedAnswer{
		Text:      text,
		Citations: citations,
		Status:    groundingStatus(text, len(cited), stripped),
		Stripped:  stripped,
	}
}

// groundingStatus classifies the verified text. A sentence counts as
// assertion-bearing when it has at least four words; it is grounded
// when it carries a surviving anchor.
func groundingStatus(text string, resolved, stripped int) domain.GroundingStatus {
	if resolved == 0 {
		return domain.StatusUngrounded
	}

	total := 0
	grounded := 0
	for _, sentence := range splitSentences(text) {
		if len(strings.Fields(sentence)) < 4 {
			continue
		}
		total++
		if anchorPattern.MatchString(sentence) {
			grounded++
		}
	}

	if total == 0 {
		return domain.StatusUngrounded
	}
	if grounded == total && stripped == 0 {
		return domain.StatusFullyGrounded
	}
	if grounded == 0 {
		return domain.StatusUngrounded
	}
	return domain.StatusPartiallyGrounded
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '।'
	})
}
