// Package chunker splits page text into overlapping word windows for indexing.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// Split splits text on whitespace into overlapping windows of up to chunkSize
// words, advancing by chunkSize-overlap words per step. Empty text yields an
// empty slice. chunkSize must be positive and overlap must be non-negative
// and strictly smaller than chunkSize; anything else is a configuration error
// (a zero or negative step would otherwise loop forever).
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got overlap=%d chunk size=%d", overlap, chunkSize)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	step := chunkSize - overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks, nil
}

// Chunker produces Chunk records for document pages with fixed size/overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. Returns an error for invalid size/overlap so that
// misconfiguration is rejected at construction rather than at ingest time.
func New(chunkSize, overlap int) (*Chunker, error) {
	if _, err := Split("probe", chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkPage splits one page of a document into Chunk records. chunkIndex is
// per page, matching how the chunks were produced.
func (c *Chunker) ChunkPage(docID, title string, page int, text string) []models.Chunk {
	// Size/overlap were validated in New, so Split cannot fail here.
	parts, _ := Split(text, c.chunkSize, c.overlap)
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_%d_%d", docID, page, i),
			DocID:      docID,
			Title:      title,
			Page:       page,
			ChunkIndex: i,
			Text:       part,
		})
	}
	return chunks
}
