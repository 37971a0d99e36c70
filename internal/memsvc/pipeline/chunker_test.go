package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextShortMessageIsSingleChunk(t *testing.T) {
	chunks := ChunkText("My favorite board game is Catan.")
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunkTextEmptyReturnsNil(t *testing.T) {
	require.Nil(t, ChunkText("   "))
	require.Nil(t, ChunkText(""))
}

func TestChunkTextDropsShortFragments(t *testing.T) {
	short := strings.Repeat("a", MinChunkChars-1)
	chunks := ChunkText(short)
	require.Empty(t, chunks)
}

func TestChunkTextLongMessageSlidesWithOverlap(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(sentence, 200) // well over the 1000-token ceiling
	chunks := ChunkText(text)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		require.Equal(t, i, c.ChunkIndex)
		require.GreaterOrEqual(t, len(strings.TrimSpace(c.Text)), MinChunkChars)
		require.LessOrEqual(t, EstimateTokens(c.Text), TargetChunkTokens+OverlapTokens+1)
	}

	// Every chunk but the last should end on a sentence boundary.
	for _, c := range chunks[:len(chunks)-1] {
		require.True(t, strings.HasSuffix(c.Text, ". "), "chunk should end on a sentence boundary: %q", c.Text[len(c.Text)-10:])
	}
}

func TestChunkTextDedupesIdenticalFragments(t *testing.T) {
	// Two chunks with byte-identical trimmed content should collapse to one.
	repeated := strings.Repeat("Alpha beta gamma delta. ", 100)
	chunks := ChunkText(repeated)
	seen := map[string]bool{}
	for _, c := range chunks {
		trimmed := strings.TrimSpace(c.Text)
		require.False(t, seen[trimmed], "duplicate chunk content retained")
		seen[trimmed] = true
	}
}

func TestEstimateTokensApproximatesCharsOverFour(t *testing.T) {
	require.Equal(t, 3, EstimateTokens("abcdefghij")) // 10 chars -> ceil(10/4) = 3
	require.Equal(t, 0, EstimateTokens(""))
}

func TestComputeTimeoutClampsToBounds(t *testing.T) {
	require.Equal(t, MinJobTimeout, computeTimeout(0))
	require.Equal(t, MaxJobTimeout, computeTimeout(1000))
}
