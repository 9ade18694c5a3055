package record

// InnerProduct calculates the raw dot product between two vectors.
// Vectors are not normalized, so this is not cosine similarity; callers
// wanting cosine behavior must normalize before storing and querying.
func InnerProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
