// Package rag provides retrieval pipeline configuration options.
package rag

import (
	"fmt"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the ingestion and retrieval pipeline configuration.
type Options struct {
	// ChunkSize is the chunk window size in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive windows in runes.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the default number of results from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxNewTokens is the default generation budget per answer.
	MaxNewTokens int `json:"max-new-tokens" mapstructure:"max-new-tokens"`

	// Collection is the vector collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the embedding adapter's declared output dimension.
	// The collection is created with this dimension; the two must agree.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:    512,
		ChunkOverlap: 64,
		TopK:         5,
		MaxNewTokens: 512,
		Collection:   "rag_documents",
		EmbeddingDim: 384, // bge-small-en-v1.5 dimension
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"rag.chunk-size", o.ChunkSize, "Chunk window size in runes.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"rag.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in runes.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Default number of results from similarity search.")
	fs.IntVar(&o.MaxNewTokens, options.Join(prefixes...)+"rag.max-new-tokens", o.MaxNewTokens, "Default generation token budget per answer.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"rag.collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"rag.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
}

// Validate validates the options. An invalid chunk-size/overlap pair is a
// configuration error and must abort startup: with overlap >= chunk-size the
// chunk window loop makes no forward progress.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must satisfy 0 <= overlap < chunk-size"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.MaxNewTokens <= 0 {
		errs = append(errs, fmt.Errorf("max-new-tokens must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("collection is required"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	return errs
}
