// Package normalisers converts source formats to plain text before
// chunking, so formatting syntax never pollutes embeddings or the
// lexical index.
package normalisers

import (
	"path/filepath"
	"strings"

	"github.com/tessera-labs/tessera/internal/normalisers/html"
	"github.com/tessera-labs/tessera/internal/normalisers/markdown"
	"github.com/tessera-labs/tessera/internal/normalisers/plaintext"
)

// Normalise converts content to plain text based on the file extension
// of path. Unknown extensions get plaintext treatment.
func Normalise(path, content string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return markdown.Normalise(content)
	case ".html", ".htm", ".xhtml":
		return html.Normalise(content)
	default:
		return plaintext.Normalise(content)
	}
}
