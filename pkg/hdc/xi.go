package hdc

import "math"

// Golden-ratio constants for the differentiation operator.
//
// The operator is Xi = RG − GR, where R is a 90° rotation applied to
// consecutive dimension pairs and G is anisotropic golden scaling of the same
// pairs. R and G do not commute; the residue carries a stable "texture"
// signature for each vector.
const (
	// Phi is the golden ratio.
	Phi = 1.618034

	// Alpha is the major scaling factor, φ/2.
	Alpha = Phi / 2.0

	// Beta is the minor scaling factor, 1/φ.
	Beta = 1.0 / Phi

	// EmergenceCoeff scales the repulsive force between signatures, α − β.
	EmergenceCoeff = Alpha - Beta
)

// rotatePairs applies R = [0, -1; 1, 0] to consecutive dimension pairs:
// (x, y) → (−y, x). The trailing element of an odd-length vector is left
// unchanged.
func rotatePairs(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := 0; i < len(v); i += 2 {
		if i+1 < len(v) {
			out[i] = -v[i+1]
			out[i+1] = v[i]
		} else {
			out[i] = v[i]
		}
	}
	return out
}

// scalePairs applies G = [α, 0; 0, β] to consecutive dimension pairs:
// (x, y) → (αx, βy). The trailing element of an odd-length vector gets the α
// scaling.
func scalePairs(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := 0; i < len(v); i += 2 {
		if i+1 < len(v) {
			out[i] = Alpha * v[i]
			out[i+1] = Beta * v[i+1]
		} else {
			out[i] = Alpha * v[i]
		}
	}
	return out
}

// XiSignature computes the non-commutative residue Xi·v = (RG − GR)·v,
// normalized to unit length.
//
// The signature is deterministic in v and is used as a differentiation
// descriptor: vectors with similar content but different internal structure
// produce different signatures.
func XiSignature(v []float64) []float64 {
	rg := rotatePairs(scalePairs(v))
	gr := scalePairs(rotatePairs(v))

	xi := make([]float64, len(v))
	for i := range v {
		xi[i] = rg[i] - gr[i]
	}
	Normalize(xi)
	return xi
}

// XiRepulsiveForce measures how strongly two signatures push apart.
//
// Returns the Euclidean distance between the signatures scaled by the
// emergence coefficient, clamped to [0, 1]. Mismatched lengths yield 0.
func XiRepulsiveForce(xiA, xiB []float64) float64 {
	if len(xiA) != len(xiB) || len(xiA) == 0 {
		return 0
	}
	var diffSq float64
	for i := range xiA {
		d := xiA[i] - xiB[i]
		diffSq += d * d
	}
	force := math.Sqrt(diffSq) * EmergenceCoeff
	if force > 1 {
		return 1
	}
	return force
}

// XiDiversityBoost adjusts a similarity score to favor records that are
// semantically close but structurally distinct.
//
// When base similarity exceeds 0.7 and the signatures repel with force above
// 0.3, the score is boosted by half the repulsion; otherwise it passes
// through unchanged.
func XiDiversityBoost(baseSimilarity float64, xiA, xiB []float64) float64 {
	repulsion := XiRepulsiveForce(xiA, xiB)
	if baseSimilarity > 0.7 && repulsion > 0.3 {
		return baseSimilarity * (1 + repulsion*0.5)
	}
	return baseSimilarity
}
