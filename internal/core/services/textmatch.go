package services

import (
	"strings"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// termSet lowercases and strips punctuation from text and returns its
// distinct terms.
func termSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range domain.Tokens(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

// termOverlap returns the fraction of query terms present in the text,
// in [0,1].
func termOverlap(query map[string]bool, text string) float64 {
	if len(query) == 0 {
		return 0
	}
	candidate := termSet(text)
	hits := 0
	for term := range query {
		if candidate[term] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// normaliseTerms lowercases text and strips punctuation from each
// token, preserving token order.
func normaliseTerms(text string) string {
	toks := domain.Tokens(strings.ToLower(text))
	out := toks[:0]
	for _, tok := range toks {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// splitSentences splits content into sentences by common terminators.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
