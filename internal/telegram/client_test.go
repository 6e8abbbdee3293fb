package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	lines := "first line\nsecond line\nthird"
	assert.Equal(t, []string{"first line", "second line", "third"}, SplitMessage(lines, 12))

	long := strings.Repeat("ab", 10)
	parts := SplitMessage(long, 6)
	assert.Equal(t, long, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 6)
	}

	runes := strings.Repeat("é", 10)
	parts = SplitMessage(runes, 5)
	assert.Equal(t, runes, strings.Join(parts, ""))
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p), "chunk %q", p)
		assert.LessOrEqual(t, len(p), 5)
	}
}
