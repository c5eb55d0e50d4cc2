package usecase

import (
	"strings"
	"testing"

	"nyaya/internal/domain"
)

func refMap(ids ...string) map[int]domain.DocumentRef {
	m := make(map[int]domain.DocumentRef, len(ids))
	for i, id := range ids {
		m[i+1] = domain.DocumentRef{DocID: id, Title: "Title " + id}
	}
	return m
}

func TestVerify_FullyGrounded(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "Theft requires dishonest intention under Section 378 [1]. The property must be moved without consent [2]."
	v := uc.Verify(raw, refMap("sc_379", "hc_411"))

	if v.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s, want fully_grounded", v.Status)
	}
	if v.Stripped != 0 {
		t.Errorf("stripped = %d, want 0", v.Stripped)
	}
	if len(v.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(v.Citations))
	}
	if v.Citations[0].DocID != "sc_379" || v.Citations[1].DocID != "hc_411" {
		t.Errorf("citations out of anchor order: %+v", v.Citations)
	}
}

func TestVerify_HallucinatedAnchorNeverSurvives(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "The offence is cognizable and non-bailable [1]. A later bench reaffirmed this position [7]."
	v := uc.Verify(raw, refMap("sc_379"))

	if strings.Contains(v.Text, "[7]") {
		t.Error("unresolvable anchor survived in the answer text")
	}
	if v.Stripped != 1 {
		t.Errorf("stripped = %d, want 1", v.Stripped)
	}
	if v.Status != domain.StatusPartiallyGrounded {
		t.Errorf("status = %s, want partially_grounded", v.Status)
	}
	if len(v.Citations) != 1 || v.Citations[0].DocID != "sc_379" {
		t.Errorf("citations = %+v", v.Citations)
	}
}

func TestVerify_NoResolvableAnchors(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "In general, criminal liability requires both act and intent [3]."
	v := uc.Verify(raw, refMap("sc_379"))

	if v.Status != domain.StatusUngrounded {
		t.Errorf("status = %s, want ungrounded", v.Status)
	}
	if len(v.Citations) != 0 {
		t.Errorf("citations should be empty, got %+v", v.Citations)
	}
	if strings.Contains(v.Text, "[3]") {
		t.Error("anchor survived despite empty resolution")
	}
}

func TestVerify_RepeatedAnchorCitedOnce(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "Movable property is an essential element [1]. Consent negates the offence entirely [1]."
	v := uc.Verify(raw, refMap("sc_379"))

	if len(v.Citations) != 1 {
		t.Errorf("repeated anchor produced %d citations, want 1", len(v.Citations))
	}
	if v.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s, want fully_grounded", v.Status)
	}
}

func TestVerify_ShortSentencesNotAssertionBearing(t *testing.T) {
	uc := NewVerifyUseCase()

	// "Yes." is too short to count against grounding.
	raw := "Yes. The punishment extends to three years of imprisonment [1]."
	v := uc.Verify(raw, refMap("sc_379"))

	if v.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s, want fully_grounded", v.Status)
	}
}

func TestVerify_DevanagariSentenceBoundary(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "चोरी के लिए बेईमान इरादा आवश्यक है [1]। संपत्ति का स्थानांतरण सहमति के बिना होना चाहिए [1]।"
	v := uc.Verify(raw, refMap("sc_379"))

	if v.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s, want fully_grounded", v.Status)
	}
}

func TestVerify_StrippedAnchorWhitespaceTidied(t *testing.T) {
	uc := NewVerifyUseCase()

	raw := "The offence requires dishonest intention [9] under the statute."
	v := uc.Verify(raw, refMap("sc_379"))

	if strings.Contains(v.Text, "  ") {
		t.Errorf("double space left after stripping: %q", v.Text)
	}
}
