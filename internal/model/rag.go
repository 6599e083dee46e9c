// Package model defines the wire-level types shared between the business
// layer and the HTTP surface.
package model

// RetrievedSource is one retrieved chunk grounding an answer.
type RetrievedSource struct {
	// Score is the cosine similarity, rounded to 4 decimal places.
	Score float64 `json:"score"`
	// Text is the chunk text.
	Text string `json:"text"`
	// Source is the originating filename, "unknown" when absent.
	Source string `json:"source"`
	// ChunkID is the chunk's 0-based index within its document.
	ChunkID int64 `json:"chunk_id"`
}

// ChatResult is the outcome of one chat request.
type ChatResult struct {
	Answer  string            `json:"answer"`
	Sources []RetrievedSource `json:"sources"`
}

// IndexResult is the outcome of one document ingestion.
type IndexResult struct {
	Message       string `json:"message"`
	ChunksIndexed int    `json:"chunks_indexed"`
	DocumentID    string `json:"document_id"`
}
