package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	chunks := Split("hello world", Options{Size: 100, Overlap: 10})
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := Split(text, Options{Size: 10, Overlap: 5})

	// steps of 5: starts at 0,5,10,15; the chunk at 15 reaches the end
	require.Len(t, chunks, 4)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0].Content)
	assert.Equal(t, strings.Repeat("a", 10), chunks[3].Content)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplitSkipsBlankChunks(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 20) + "def"
	chunks := Split(text, Options{Size: 5, Overlap: 0})
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
}

func TestSplitInvalidOverlap(t *testing.T) {
	// overlap >= size would never advance; it is ignored
	text := strings.Repeat("x", 30)
	chunks := Split(text, Options{Size: 10, Overlap: 10})
	require.Len(t, chunks, 3)
}

func TestSplitMultibyte(t *testing.T) {
	text := strings.Repeat("çã", 10) // 20 runes
	chunks := Split(text, Options{Size: 10, Overlap: 0})
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("çã", 5), chunks[0].Content)
}
