package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalise_StripsTags(t *testing.T) {
	got := Normalise("<p>Hello <b>world</b></p>")

	assert.Equal(t, "Hello world", got)
}

func TestNormalise_RemovesScriptAndStyle(t *testing.T) {
	input := `<html><head><title>Page</title></head>
<body><script>alert("x")</script><style>p { color: red }</style>
<p>Visible text</p></body></html>`

	got := Normalise(input)

	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color: red")
	assert.Contains(t, got, "Visible text")
}

func TestNormalise_DecodesEntities(t *testing.T) {
	got := Normalise("<p>Fish &amp; chips &mdash; &pound;5</p>")

	assert.Contains(t, got, "Fish & chips")
}

func TestNormalise_BlockElementsBecomeLines(t *testing.T) {
	got := Normalise("<div>first</div><div>second</div>")

	assert.Equal(t, "first\nsecond", got)
}

func TestNormalise_IgnoresComments(t *testing.T) {
	got := Normalise("<p>kept</p><!-- dropped -->")

	assert.Equal(t, "kept", got)
}
