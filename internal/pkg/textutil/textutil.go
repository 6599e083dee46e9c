// Package textutil provides text chunking and vector math helpers for the
// ingestion and retrieval pipeline.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

// MinChunkLength is the minimum trimmed length, in runes, a chunk must
// exceed to be kept. Shorter fragments carry no retrievable signal.
const MinChunkLength = 20

// ErrInvalidChunkConfig is returned when overlap is negative or not
// smaller than the chunk size.
var ErrInvalidChunkConfig = errors.New("chunk overlap must be in [0, chunk size)")

// SplitIntoChunks splits text into overlapping windows of chunkSize runes
// advancing by chunkSize-overlap. Each window is whitespace-trimmed and
// windows of MinChunkLength runes or fewer are discarded. The result is
// deterministic and preserves document order.
func SplitIntoChunks(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunkConfig
	}

	runes := []rune(text)
	step := chunkSize - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) > MinChunkLength {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}

// NormalizeL2 scales the vector to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RoundScore rounds a similarity score to 4 decimal places, the precision
// reported to API clients.
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// HashString computes the SHA-256 hash of a string as lowercase hex.
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates a string to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
