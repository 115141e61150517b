package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "ACME GmbH", normalizeText("  ACME  GmbH  "))
	assert.Equal(t, "a b c", normalizeText("a\t b \t c"))
}

func TestNormalizeLines_SkipsBlanks(t *testing.T) {
	lines := NormalizeLines("erste\n\n   \nzweite\r\ndritte")
	assert.Len(t, lines, 3)
	assert.Equal(t, Line{Index: 0, Text: "erste"}, lines[0])
	assert.Equal(t, Line{Index: 1, Text: "zweite"}, lines[1])
	assert.Equal(t, Line{Index: 2, Text: "dritte"}, lines[2])
}

func TestNormalizeLines_Empty(t *testing.T) {
	assert.Empty(t, NormalizeLines(""))
	assert.Empty(t, NormalizeLines("\n\n"))
}
