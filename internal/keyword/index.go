// Package keyword provides BM25 keyword search over document chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/manabu/internal/models"
)

// Result is a single keyword search hit. Score is the BM25 relevance score;
// higher means more relevant, unlike vector distances.
type Result struct {
	Chunk models.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Index defines keyword search operations over chunks.
type Index interface {
	Index(ctx context.Context, chunk models.Chunk) error
	IndexBatch(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	DeleteByDocument(ctx context.Context, docID string) error
	DocCount() (uint64, error)
	Close() error
}
