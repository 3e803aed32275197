// Package embedding provides text embedding via a remote embeddings service,
// with caching and a deterministic mock for tests.
package embedding

import "context"

// Embedder produces vector embeddings for text. Embeddings are deterministic
// for a fixed model; dimensionality is fixed per embedder instance.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
