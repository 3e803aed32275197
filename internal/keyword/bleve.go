// Package keyword provides the Bleve implementation of Index.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/manabu/internal/models"
)

// bleveChunk is the indexed form of a chunk. Fields are stored so hits can be
// turned back into chunks without a database round trip.
type bleveChunk struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Page  int    `json:"page"`
	Index int    `json:"chunk_index"`
	Text  string `json:"text"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused so unchanged documents are not re-indexed across restarts. Changing
// the mapping requires removing the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	chunkMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so exact course
	// vocabulary like "mitosis" matches without stem drift.
	textFieldMapping.Analyzer = standard.Name
	chunkMapping.AddFieldMappingsAt("text", textFieldMapping)
	chunkMapping.AddFieldMappingsAt("title", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	chunkMapping.AddFieldMappingsAt("doc_id", keywordFieldMapping)

	im.AddDocumentMapping("chunk", chunkMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = chunkMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a single chunk keyed by its chunk ID.
func (b *BleveIndex) Index(ctx context.Context, chunk models.Chunk) error {
	return b.index.Index(chunk.ID, bleveChunk{
		DocID: chunk.DocID,
		Title: chunk.Title,
		Page:  chunk.Page,
		Index: chunk.ChunkIndex,
		Text:  chunk.Text,
	})
}

// IndexBatch indexes chunks in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, chunks []models.Chunk) error {
	batch := b.index.NewBatch()
	for _, chunk := range chunks {
		err := batch.Index(chunk.ID, bleveChunk{
			DocID: chunk.DocID,
			Title: chunk.Title,
			Page:  chunk.Page,
			Index: chunk.ChunkIndex,
			Text:  chunk.Text,
		})
		if err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", chunk.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over title and text and returns up to limit hits,
// best first. Hits are rebuilt from stored fields.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		chunk := models.Chunk{ID: hit.ID}
		if v, ok := hit.Fields["doc_id"].(string); ok {
			chunk.DocID = v
		}
		if v, ok := hit.Fields["title"].(string); ok {
			chunk.Title = v
		}
		if v, ok := hit.Fields["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := hit.Fields["page"].(float64); ok {
			chunk.Page = int(v)
		}
		if v, ok := hit.Fields["chunk_index"].(float64); ok {
			chunk.ChunkIndex = int(v)
		}
		out = append(out, Result{Chunk: chunk, Score: hit.Score})
	}
	return out, nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (b *BleveIndex) DeleteByDocument(ctx context.Context, docID string) error {
	q := bleve.NewTermQuery(docID)
	q.SetField("doc_id")
	req := bleve.NewSearchRequest(q)
	// Page through matches; each pass deletes what it found.
	req.Size = 500

	for {
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("Bleve delete lookup failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve delete failed: %w", err)
		}
	}
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
