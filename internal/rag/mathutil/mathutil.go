package mathutil

import "math"

// DotProduct computes the dot product of two equal-length vectors.
// Accumulates in float64 so long vectors keep their precision.
func DotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm computes the L2 norm of a vector.
func Norm(v []float32) float64 {
	return math.Sqrt(DotProduct(v, v))
}

// Normalize scales v in place to unit length. Zero vectors are left as-is.
func Normalize(v []float32) {
	norm := Norm(v)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|), in [-1, 1].
// Returns 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return DotProduct(a, b) / (normA * normB)
}

// Finite reports whether every component of v is a real number.
func Finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
