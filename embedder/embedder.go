// Package embedder provides text embedding providers for the text-insert
// path. The service never computes embeddings itself.
package embedder

import "context"

// Embedder converts raw texts into fixed-dimension vectors. Implementations
// must return one vector per input text, in input order, from a single
// backend call per invocation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
