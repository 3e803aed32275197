// Package vector provides the in-memory embedding index for semantic retrieval.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/models"
)

// Index owns aligned (vector, chunk) pairs and supports batched insertion and
// exact nearest-neighbor queries under squared Euclidean distance.
//
// A single exclusive mutex serializes the add and search sections. This is
// deliberately coarse-grained and is the system's serialization point;
// embedding calls (the slow part) run outside the lock, so the lock only
// covers in-memory appends and the brute-force scan. Entries are never
// updated or deleted in place; document removal relies on a rebuild from the
// durable store.
type Index struct {
	dimensions int
	embedder   embedding.Embedder

	mu      sync.Mutex
	vectors [][]float32
	chunks  []models.Chunk
}

// NewIndex creates an index whose dimensionality is fixed to the embedder's.
func NewIndex(embedder embedding.Embedder) (*Index, error) {
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("embedder dimensions must be positive, got %d", dims)
	}
	return &Index{
		dimensions: dims,
		embedder:   embedder,
		vectors:    make([][]float32, 0),
		chunks:     make([]models.Chunk, 0),
	}, nil
}

// Add embeds each chunk's text and appends the (vector, chunk) pairs.
// A no-op on empty input. The batch is committed atomically: an embedding
// failure or a dimension mismatch leaves the index unchanged, and a
// concurrent Query never observes a partially appended batch.
func (x *Index) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}
	for i, vec := range vecs {
		if len(vec) != x.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), x.dimensions)
		}
	}
	x.mu.Lock()
	x.vectors = append(x.vectors, vecs...)
	x.chunks = append(x.chunks, chunks...)
	x.mu.Unlock()
	return nil
}

// Query embeds text and returns up to min(topK, Size()) chunks ordered
// ascending by squared Euclidean distance (best match first). An empty index
// yields an empty result, not an error. Embedding failures surface as
// retrieval errors.
func (x *Index) Query(ctx context.Context, text string, topK int) ([]models.Retrieved, error) {
	if topK <= 0 {
		return nil, nil
	}
	x.mu.Lock()
	size := len(x.chunks)
	x.mu.Unlock()
	if size == 0 {
		return nil, nil
	}

	queryVec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(queryVec), x.dimensions)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	positions, distances := x.scan(queryVec)
	k := topK
	if k > len(positions) {
		k = len(positions)
	}
	results := make([]models.Retrieved, 0, k)
	for i := 0; i < len(positions) && len(results) < k; i++ {
		pos := positions[i]
		// Guard against invalid positions from the scan; skip, never crash.
		if pos < 0 || pos >= len(x.chunks) {
			continue
		}
		results = append(results, models.Retrieved{Chunk: x.chunks[pos], Score: distances[i]})
	}
	return results, nil
}

// scan computes squared Euclidean distance to every stored vector and returns
// positions sorted ascending by distance. Caller must hold the lock.
func (x *Index) scan(query []float32) ([]int, []float64) {
	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(x.vectors))
	for i, vec := range x.vectors {
		var d float64
		for j := 0; j < x.dimensions; j++ {
			diff := float64(query[j] - vec[j])
			d += diff * diff
		}
		hits[i] = hit{pos: i, dist: d}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	positions := make([]int, len(hits))
	distances := make([]float64, len(hits))
	for i, h := range hits {
		positions[i] = h.pos
		distances[i] = h.dist
	}
	return positions, distances
}

// Size returns the number of indexed entries.
func (x *Index) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.chunks)
}

// Dimensions returns the fixed vector dimensionality.
func (x *Index) Dimensions() int {
	return x.dimensions
}
