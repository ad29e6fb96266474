// Package chunker splits document text into bounded, overlapping
// segments for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// hardSplitRunes bounds a single token's length. A run of text with no
// natural break (no whitespace) is hard-split into pieces of this size
// rather than silently dropped or passed through over the ceiling.
const hardSplitRunes = 32

// Segment is one bounded slice of a document's text.
type Segment struct {
	// Text is the segment content.
	Text string

	// TokenCount is the number of tokens in Text.
	TokenCount int

	// OverlapTokens is how many leading tokens are shared with the
	// previous segment. Zero for the first segment.
	OverlapTokens int
}

// Split cuts text into ordered segments of at most maxTokens tokens,
// with consecutive segments sharing overlapTokens tokens. It never emits
// a segment over the ceiling. Returns domain.ErrInvalidInput when the
// text is empty or maxTokens does not exceed overlapTokens.
func Split(text string, maxTokens, overlapTokens int) ([]Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive", domain.ErrInvalidInput)
	}
	if overlapTokens < 0 || maxTokens <= overlapTokens {
		return nil, fmt.Errorf("%w: max tokens (%d) must exceed overlap (%d)",
			domain.ErrInvalidInput, maxTokens, overlapTokens)
	}

	tokens := hardSplit(domain.Tokens(text))
	step := maxTokens - overlapTokens

	segments := make([]Segment, 0, len(tokens)/step+1)
	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		overlap := 0
		if start > 0 {
			overlap = overlapTokens
			if overlap > end-start {
				overlap = end - start
			}
		}

		segments = append(segments, Segment{
			Text:          strings.Join(tokens[start:end], " "),
			TokenCount:    end - start,
			OverlapTokens: overlap,
		})

		if end == len(tokens) {
			break
		}
	}

	return segments, nil
}

// hardSplit breaks tokens longer than hardSplitRunes into fixed-size
// pieces so the token ceiling stays meaningful for unbroken runs.
func hardSplit(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) <= hardSplitRunes {
			out = append(out, tok)
			continue
		}
		for start := 0; start < len(runes); start += hardSplitRunes {
			end := start + hardSplitRunes
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, string(runes[start:end]))
		}
	}
	return out
}
