package textutil

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntoChunksInvalidConfig(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals chunk size", 100, 100},
		{"overlap exceeds chunk size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitIntoChunks("some text", tt.chunkSize, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunkConfig)
		})
	}
}

func TestSplitIntoChunksWindowing(t *testing.T) {
	// 600 chars with size 512 and overlap 64: windows start at 0 and 448,
	// both longer than the minimum, so exactly 2 chunks.
	text := strings.Repeat("a", 600)
	chunks, err := SplitIntoChunks(text, 512, 64)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 512), chunks[0])
	assert.Equal(t, strings.Repeat("a", 152), chunks[1])
}

func TestSplitIntoChunksShortInput(t *testing.T) {
	chunks, err := SplitIntoChunks("", 512, 64)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = SplitIntoChunks("   \n\t  ", 512, 64)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Trimmed length must exceed MinChunkLength.
	chunks, err = SplitIntoChunks(strings.Repeat("x", MinChunkLength), 512, 64)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = SplitIntoChunks(strings.Repeat("x", MinChunkLength+1), 512, 64)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestSplitIntoChunksTrimsWhitespace(t *testing.T) {
	text := "  " + strings.Repeat("b", 30) + "  "
	chunks, err := SplitIntoChunks(text, 512, 64)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Repeat("b", 30), chunks[0])
}

func TestSplitIntoChunksDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	first, err := SplitIntoChunks(text, 128, 32)
	require.NoError(t, err)
	second, err := SplitIntoChunks(text, 128, 32)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSplitIntoChunksRuneBoundaries(t *testing.T) {
	text := strings.Repeat("世界和平与发展进步繁荣昌盛", 10)
	chunks, err := SplitIntoChunks(text, 50, 10)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 50)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := NormalizeL2([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalizeL2ZeroVector(t *testing.T) {
	v := NormalizeL2([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.1235, RoundScore(0.123456))
	assert.Equal(t, 0.9999, RoundScore(0.99985))
	assert.Equal(t, 1.0, RoundScore(0.99995))
	assert.Equal(t, 0.0, RoundScore(0.00004))
}

func TestHashString(t *testing.T) {
	h1 := HashString("hello")
	h2 := HashString("hello")
	h3 := HashString("world")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hel", TruncateString("hello", 3))
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "世界", TruncateString("世界和平", 2))
}
