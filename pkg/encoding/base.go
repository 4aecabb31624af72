// Package encoding turns text into hypervector memory records.
//
// It provides the Embedder interface for pluggable text→embedding backends,
// a deterministic hash embedder for offline use, a remote OpenAI-backed
// embedder, composable fallback and caching wrappers, and the Pipeline that
// chains embedding with codebook projection.
package encoding

import (
	"context"
	"errors"
)

// Predefined errors for encoding failures.
var (
	// ErrEmptyInput indicates that the input text was empty or whitespace.
	ErrEmptyInput = errors.New("empty input text")

	// ErrEmbeddingFailed indicates that the embedding backend failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder converts text into a dense embedding vector.
//
// All implementations (hash, OpenAI, fallback chain, cache) satisfy this
// interface so the pipeline can compose them freely.
type Embedder interface {
	// Embed converts a text string into an embedding vector.
	//
	// Empty or whitespace-only input fails with ErrEmptyInput.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - text: The input text to embed
	//
	// Returns the embedding vector and any error.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the width of the vectors this embedder produces.
	Dimensions() int
}
