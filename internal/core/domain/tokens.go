package domain

import "strings"

// TokenCount approximates the number of model tokens in text by counting
// whitespace-separated fields. Every component that reasons about token
// budgets (chunking, context windows, prompt truncation) uses this one
// approximation so their arithmetic stays consistent.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

// Tokens splits text into the same units TokenCount counts.
func Tokens(text string) []string {
	return strings.Fields(text)
}
