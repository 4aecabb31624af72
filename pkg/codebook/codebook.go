// Package codebook implements the seeded random projection that lifts
// low-dimensional embeddings into hypervector space.
//
// A codebook is immutable after construction. Determinism is a strict
// invariant: the same seed and dimensions always produce the identical
// projection matrix, so snapshots only need to persist the seed.
package codebook

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/hypermem/hypermem-go/pkg/hdc"
)

// ErrDimensionMismatch indicates that an embedding's width does not match
// the codebook's input dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Default dimensions for the text pipeline.
const (
	// DefaultInputDim matches the width of the local hash embedder and
	// common sentence-embedding models.
	DefaultInputDim = 384

	// DefaultOutputDim is the hypervector width.
	DefaultOutputDim = hdc.DefaultDimensions
)

// Codebook is a dense inputDim × outputDim projection matrix with entries
// drawn from a seeded normal distribution scaled by 1/sqrt(outputDim), which
// keeps the projection approximately variance-preserving.
type Codebook struct {
	inputDim  int
	outputDim int
	seed      uint64

	// matrix is stored row-major: matrix[i*outputDim+j] is entry (i, j).
	matrix []float64
}

// New builds a codebook for the given dimensions and seed.
//
// Entries are generated in a fixed row-major order from a PCG source, so the
// matrix is bit-identical across runs and processes for the same arguments.
//
// Parameters:
//   - inputDim: Expected embedding width
//   - outputDim: Hypervector width
//   - seed: Seed for the projection matrix
//
// Returns a new immutable Codebook.
func New(inputDim, outputDim int, seed uint64) *Codebook {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scale := 1.0 / math.Sqrt(float64(outputDim))

	matrix := make([]float64, inputDim*outputDim)
	for i := range matrix {
		matrix[i] = rng.NormFloat64() * scale
	}

	return &Codebook{
		inputDim:  inputDim,
		outputDim: outputDim,
		seed:      seed,
		matrix:    matrix,
	}
}

// Project maps an embedding into hypervector space and normalizes the result
// to unit length.
//
// Returns ErrDimensionMismatch if the embedding width differs from the
// codebook's input dimension.
func (c *Codebook) Project(embedding []float64) ([]float64, error) {
	if len(embedding) != c.inputDim {
		return nil, ErrDimensionMismatch
	}

	out := make([]float64, c.outputDim)
	for i, x := range embedding {
		if x == 0 {
			continue
		}
		row := c.matrix[i*c.outputDim : (i+1)*c.outputDim]
		for j, m := range row {
			out[j] += x * m
		}
	}

	hdc.Normalize(out)
	return out, nil
}

// InputDim returns the expected embedding width.
func (c *Codebook) InputDim() int { return c.inputDim }

// OutputDim returns the hypervector width.
func (c *Codebook) OutputDim() int { return c.outputDim }

// Seed returns the seed the matrix was generated from.
func (c *Codebook) Seed() uint64 { return c.seed }
