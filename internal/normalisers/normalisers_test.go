package normalisers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalise_SelectsByExtension(t *testing.T) {
	assert.Equal(t, "Title", Normalise("notes.md", "# Title"))
	assert.Equal(t, "body", Normalise("page.HTML", "<p>body</p>"))
	assert.Equal(t, "raw\ntext", Normalise("log.txt", "raw\r\ntext"))
}

func TestNormalise_UnknownExtensionFallsBack(t *testing.T) {
	assert.Equal(t, "# not markdown", Normalise("data.csv", "# not markdown\r\n"))
}
