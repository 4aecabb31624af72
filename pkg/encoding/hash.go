package encoding

import (
	"context"
	"math"
	"strings"

	"github.com/hypermem/hypermem-go/pkg/hdc"
)

// lcgMultiplier drives the hash mixing scheme (Knuth's MMIX constant).
const lcgMultiplier = 6364136223846793005

// HashEmbedder is a fast, deterministic hash-based embedder for offline and
// test use. It tokenizes on whitespace, hashes each token to a vector, and
// bundles the token vectors.
//
// The same text and seed always produce the same embedding, so it doubles as
// the deterministic fallback behind a remote embedder.
type HashEmbedder struct {
	dim  int
	seed uint64
}

// NewHashEmbedder creates a hash embedder producing vectors of the given
// width.
//
// Parameters:
//   - dim: Embedding width (the codebook's input dimension)
//   - seed: Seed mixed into every token hash
func NewHashEmbedder(dim int, seed uint64) *HashEmbedder {
	return &HashEmbedder{dim: dim, seed: seed}
}

// tokenVector derives a deterministic vector in [-1, 1]^dim for one token.
func (e *HashEmbedder) tokenVector(token string) []float64 {
	h := e.seed
	for i := 0; i < len(token); i++ {
		h = h*lcgMultiplier + uint64(token[i])
	}

	v := make([]float64, e.dim)
	for i := range v {
		h = h*lcgMultiplier + uint64(i)
		v[i] = float64(h>>33)/float64(math.MaxUint32)*2 - 1
	}
	return v
}

// Embed tokenizes text on whitespace, hashes each token, and bundles the
// results into a unit-length embedding.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([]float64, e.dim)
	for _, token := range tokens {
		tv := e.tokenVector(token)
		for i, x := range tv {
			out[i] += x
		}
	}
	hdc.Normalize(out)
	return out, nil
}

// Dimensions returns the embedding width.
func (e *HashEmbedder) Dimensions() int {
	return e.dim
}
