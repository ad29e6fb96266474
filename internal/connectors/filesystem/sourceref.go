package filesystem

import (
	"path/filepath"
	"strings"
)

// SourceRef converts a local path to the canonical source reference
// stored with a document. The same file always maps to the same ref,
// which is what makes resubmission idempotent.
func SourceRef(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

// PathFromSourceRef converts a source reference back to a local path.
// Bare paths pass through unchanged.
func PathFromSourceRef(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}
