package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalise_StripsHeadingsAndEmphasis(t *testing.T) {
	got := Normalise("# Title\n\nSome **bold** and *italic* text.")

	assert.Equal(t, "Title\n\nSome bold and italic text.", got)
}

func TestNormalise_RemovesCodeBlocks(t *testing.T) {
	got := Normalise("Before\n\n```go\nfunc main() {}\n```\n\nAfter")

	assert.NotContains(t, got, "func main")
	assert.Contains(t, got, "Before")
	assert.Contains(t, got, "After")
}

func TestNormalise_KeepsLinkTextDropsURL(t *testing.T) {
	got := Normalise("See [the docs](https://example.com/docs) for details.")

	assert.Equal(t, "See the docs for details.", got)
}

func TestNormalise_RemovesImages(t *testing.T) {
	got := Normalise("![diagram](img.png)\nCaption text.")

	assert.NotContains(t, got, "img.png")
	assert.Contains(t, got, "Caption text.")
}

func TestNormalise_StripsListMarkers(t *testing.T) {
	got := Normalise("- first\n- second\n1. third")

	assert.Equal(t, "first\nsecond\nthird", got)
}

func TestNormalise_CollapsesBlankLines(t *testing.T) {
	got := Normalise("one\n\n\n\n\ntwo")

	assert.Equal(t, "one\n\ntwo", got)
}
