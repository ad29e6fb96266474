// Package plaintext is the fallback normaliser for formats that are
// already readable text.
package plaintext

import (
	"regexp"
	"strings"
)

var multiNewlines = regexp.MustCompile(`\n{4,}`)

// Normalise cleans up plain text: normalises line endings and caps
// runs of blank lines.
func Normalise(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n\n")
	return strings.TrimSpace(content)
}
