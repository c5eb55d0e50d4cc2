package analyzer

import "testing"

func TestTokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The punishment for theft under Section 379")
	want := []string{"punishment", "theft", "section", "379"}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		if tokens[i] != w {
			t.Errorf("token %d: expected %q, got %q", i, w, tokens[i])
		}
	}
}

func TestTokenize_StopwordsAndShortWords(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("a an it I of the")
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
}

func TestCountTokens(t *testing.T) {
	tok := NewTokenizer()

	if n := tok.CountTokens(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}

	n := tok.CountTokens("one two three four five six seven eight nine ten")
	if n < 10 || n > 14 {
		t.Errorf("expected roughly 13 tokens for 10 words, got %d", n)
	}
}
