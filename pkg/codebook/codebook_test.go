package codebook

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermem/hypermem-go/pkg/hdc"
)

func TestProjectDeterministic(t *testing.T) {
	embedding := make([]float64, 64)
	rng := rand.New(rand.NewPCG(1, 0))
	for i := range embedding {
		embedding[i] = rng.NormFloat64()
	}

	a := New(64, 1024, 42)
	b := New(64, 1024, 42)

	pa, err := a.Project(embedding)
	require.NoError(t, err)
	pb, err := b.Project(embedding)
	require.NoError(t, err)

	assert.Equal(t, pa, pb, "same seed must produce bit-identical projections")
}

func TestProjectSeedSensitivity(t *testing.T) {
	embedding := make([]float64, 64)
	embedding[0] = 1.0

	a := New(64, 1024, 1)
	b := New(64, 1024, 2)

	pa, err := a.Project(embedding)
	require.NoError(t, err)
	pb, err := b.Project(embedding)
	require.NoError(t, err)

	sim := hdc.CosineSimilarity(pa, pb)
	assert.Less(t, sim, 0.5, "different seeds should produce decorrelated projections")
}

func TestProjectUnitLength(t *testing.T) {
	cb := New(32, 2048, 7)
	rng := rand.New(rand.NewPCG(2, 0))

	for i := 0; i < 5; i++ {
		embedding := make([]float64, 32)
		for j := range embedding {
			embedding[j] = rng.NormFloat64()
		}

		v, err := cb.Project(embedding)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, hdc.Norm(v), 1e-4, "projection must be unit length")
	}
}

func TestProjectPreservesSimilarityOrder(t *testing.T) {
	cb := New(16, 4096, 3)

	base := make([]float64, 16)
	near := make([]float64, 16)
	far := make([]float64, 16)
	rng := rand.New(rand.NewPCG(9, 0))
	for i := range base {
		base[i] = rng.NormFloat64()
		near[i] = base[i] + 0.1*rng.NormFloat64()
		far[i] = rng.NormFloat64()
	}

	pBase, err := cb.Project(base)
	require.NoError(t, err)
	pNear, err := cb.Project(near)
	require.NoError(t, err)
	pFar, err := cb.Project(far)
	require.NoError(t, err)

	assert.Greater(t, hdc.CosineSimilarity(pBase, pNear), hdc.CosineSimilarity(pBase, pFar),
		"nearby embeddings should stay nearby after projection")
}

func TestProjectDimensionMismatch(t *testing.T) {
	cb := New(32, 128, 1)

	_, err := cb.Project(make([]float64, 16))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = cb.Project(nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAccessors(t *testing.T) {
	cb := New(32, 128, 5)
	assert.Equal(t, 32, cb.InputDim())
	assert.Equal(t, 128, cb.OutputDim())
	assert.Equal(t, uint64(5), cb.Seed())
}
