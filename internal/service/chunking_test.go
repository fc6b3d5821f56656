package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_Blank(t *testing.T) {
	assert.Nil(t, SplitText("   \n", DefaultChunkConfig()))
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, SplitText("  hello world  ", DefaultChunkConfig()))
}

func TestSplitText_WindowsOverlap(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 20, MinChars: 5, Overlap: 5}
	text := strings.Repeat("word ", 20)

	chunks := SplitText(text, cfg)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		assert.False(t, strings.HasPrefix(c, " "))
	}
	first := chunks[0]
	tail := first[len(first)-3:]
	assert.Contains(t, chunks[1], tail)
}

func TestSplitText_MaxChunks(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 10, MinChars: 2, Overlap: 0, MaxChunks: 3}

	chunks := SplitText(strings.Repeat("abcd ", 50), cfg)

	assert.Len(t, chunks, 3)
}

func TestSplitText_NoWhitespaceHardCut(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 10, MinChars: 5}

	chunks := SplitText(strings.Repeat("x", 25), cfg)

	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, chunks)
}
