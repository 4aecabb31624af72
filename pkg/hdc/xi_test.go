package hdc

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotatePairs(t *testing.T) {
	v := []float64{1, 0, 0, 1}
	rotated := rotatePairs(v)
	assert.Equal(t, []float64{0, 1, -1, 0}, rotated)
}

func TestScalePairs(t *testing.T) {
	v := []float64{2, 2}
	scaled := scalePairs(v)
	assert.InDelta(t, Phi, scaled[0], 1e-6)
	assert.InDelta(t, 2*Beta, scaled[1], 1e-6)
}

func TestXiSignatureNonZero(t *testing.T) {
	// R and G do not commute, so the residue is non-trivial.
	xi := XiSignature([]float64{1, 1, 0, 0})
	assert.Greater(t, Norm(xi), 1e-6)
}

func TestXiSignatureDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 0))
	v := randomUnitVector(rng, 64)

	xi1 := XiSignature(v)
	xi2 := XiSignature(v)
	assert.Equal(t, xi1, xi2, "same input must yield identical signatures")
}

func TestXiSignatureDistinguishes(t *testing.T) {
	a := XiSignature([]float64{1, 0, 0, 0})
	b := XiSignature([]float64{0, 0, 0, 1})

	sim := CosineSimilarity(a, b)
	assert.Less(t, sim, 0.99, "structurally different vectors should differ in signature")
}

func TestXiRepulsiveForceRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 0))

	for i := 0; i < 10; i++ {
		a := XiSignature(randomUnitVector(rng, 128))
		b := XiSignature(randomUnitVector(rng, 128))

		force := XiRepulsiveForce(a, b)
		assert.GreaterOrEqual(t, force, 0.0)
		assert.LessOrEqual(t, force, 1.0)
	}

	assert.Equal(t, 0.0, XiRepulsiveForce([]float64{1}, []float64{1, 2}), "length mismatch yields zero force")
	assert.Equal(t, 0.0, XiRepulsiveForce(nil, nil))
}

func TestXiDiversityBoost(t *testing.T) {
	// Identical signatures: no repulsion, no boost.
	sig := XiSignature([]float64{1, 2, 3, 4})
	assert.Equal(t, 0.9, XiDiversityBoost(0.9, sig, sig))

	// Low similarity never gets boosted regardless of repulsion.
	a := XiSignature([]float64{1, 0, 0, 0})
	b := XiSignature([]float64{0, 0, 0, 1})
	assert.Equal(t, 0.2, XiDiversityBoost(0.2, a, b))
}
