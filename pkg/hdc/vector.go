// Package hdc provides the hyperdimensional vector algebra and wave-modulated
// strength model used throughout the memory engine.
//
// Vectors are plain []float64 slices, unit-length by convention. The three
// hyperdimensional operators are:
//   - Bind: element-wise product (order-independent, self-inverse)
//   - Bundle: element-wise sum followed by normalization
//   - Permute: circular shift (makes compositions order-sensitive)
package hdc

import "math"

// DefaultDimensions is the width of hypervectors produced by the default
// codebook configuration.
const DefaultDimensions = 10000

// CosineSimilarity computes the cosine similarity between two vectors.
//
// Returns a value in [-1, 1]. If either vector has zero norm, or the lengths
// differ, it returns 0 rather than dividing by zero or panicking.
//
// Parameters:
//   - a: First vector
//   - b: Second vector
//
// Returns the cosine of the angle between a and b.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp against float drift so callers can rely on [-1, 1].
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Normalize scales v in place to unit length.
//
// A zero vector is left unchanged.
func Normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}

// Normalized returns a unit-length copy of v, leaving v untouched.
func Normalized(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	Normalize(out)
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Bind combines two vectors by element-wise multiplication.
//
// Binding is order-independent and approximately self-inverse for
// high-dimensional near-random unit vectors:
//
//	Bind(Bind(a, b), a) ≈ b  (in expectation)
//
// This is the algebraic basis for associative recall. Returns nil if the
// lengths differ.
func Bind(a, b []float64) []float64 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

// Bundle superposes a non-empty set of vectors by element-wise summation
// followed by normalization.
//
// For typical near-orthogonal random inputs the result has positive cosine
// similarity to every input, which makes it a usable summary vector.
//
// Returns nil if vs is empty or the vectors disagree on length.
func Bundle(vs ...[]float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	dim := len(vs[0])
	out := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil
		}
		for i := range v {
			out[i] += v[i]
		}
	}
	Normalize(out)
	return out
}

// Permute circularly shifts v by k positions.
//
// Permutation makes otherwise commutative compositions order-sensitive:
// permuting a vector before binding encodes its sequence position. Negative
// k shifts in the opposite direction.
func Permute(v []float64, k int) []float64 {
	n := len(v)
	if n == 0 {
		return nil
	}
	k = ((k % n) + n) % n
	out := make([]float64, n)
	for i := range v {
		out[(i+k)%n] = v[i]
	}
	return out
}
