// Package ingest turns uploaded files into stored, indexed chunks. One ingest
// writes the document and its chunks to SQLite, embeds the chunks into the
// vector index, and feeds the keyword index.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/chunker"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

// rehydrateBatchSize bounds memory during the startup index rebuild.
const rehydrateBatchSize = 500

// Ingester coordinates extraction, chunking, storage, and indexing.
type Ingester struct {
	storage   storage.Storage
	vector    *vector.Index
	keyword   keyword.Index
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	logger    *zap.Logger
}

// NewIngester creates an ingester with the given dependencies. keyword may be
// nil when keyword search is disabled.
func NewIngester(
	store storage.Storage,
	vectorIndex *vector.Index,
	keywordIndex keyword.Index,
	extractor *extract.Extractor,
	chk *chunker.Chunker,
	logger *zap.Logger,
) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		storage:   store,
		vector:    vectorIndex,
		keyword:   keywordIndex,
		extractor: extractor,
		chunker:   chk,
		logger:    logger,
	}
}

// IngestFile ingests the file at path.
func (g *Ingester) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return g.IngestBytes(ctx, filepath.Base(path), content)
}

// IngestBytes ingests an uploaded file held in memory. The document title is
// derived from the filename. A file with no extractable text is rejected.
func (g *Ingester) IngestBytes(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	pages, err := g.extractor.PagesFromBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	docID := uuid.New().String()
	title := titleFromFilename(filename)

	var chunks []models.Chunk
	for i, pageText := range pages {
		// Pages are 1-based in citations.
		chunks = append(chunks, g.chunker.ChunkPage(docID, title, i+1, pageText)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filename)
	}

	doc := &models.Document{
		ID:        docID,
		Title:     title,
		Filename:  filename,
		NumPages:  len(pages),
		NumChunks: len(chunks),
	}
	if err := g.storage.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := g.storage.BatchCreateChunks(ctx, chunks); err != nil {
		// Roll back the document row so a retry is clean.
		_ = g.storage.DeleteDocument(ctx, docID)
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	if err := g.vector.Add(ctx, chunks); err != nil {
		_ = g.storage.DeleteDocument(ctx, docID)
		return nil, fmt.Errorf("index vectors: %w", err)
	}
	if g.keyword != nil {
		if err := g.keyword.IndexBatch(ctx, chunks); err != nil {
			return nil, fmt.Errorf("index keywords: %w", err)
		}
	}

	g.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
	)
	return doc, nil
}

// DeleteDocument removes a document from storage and the keyword index. The
// vector index holds it until the next rebuild; stale entries still resolve
// to valid chunks because the index keeps its own copy.
func (g *Ingester) DeleteDocument(ctx context.Context, docID string) error {
	if err := g.storage.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if g.keyword != nil {
		if err := g.keyword.DeleteByDocument(ctx, docID); err != nil {
			return fmt.Errorf("delete from keyword index: %w", err)
		}
	}
	g.logger.Info("document deleted", zap.String("doc_id", docID))
	return nil
}

// Rehydrate rebuilds the vector index from stored chunks in bounded batches.
// Returns the number of chunks loaded. Run at startup before serving.
func (g *Ingester) Rehydrate(ctx context.Context) (int, error) {
	total := 0
	for offset := 0; ; offset += rehydrateBatchSize {
		batch, err := g.storage.ListChunks(ctx, offset, rehydrateBatchSize)
		if err != nil {
			return total, fmt.Errorf("list chunks: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		if err := g.vector.Add(ctx, batch); err != nil {
			return total, fmt.Errorf("rebuild vectors: %w", err)
		}
		if g.keyword != nil {
			if err := g.keyword.IndexBatch(ctx, batch); err != nil {
				return total, fmt.Errorf("rebuild keywords: %w", err)
			}
		}
		total += len(batch)
	}
	if total > 0 {
		g.logger.Info("index rehydrated", zap.Int("chunks", total))
	}
	return total, nil
}

// titleFromFilename derives a display title: extension stripped, underscores
// as spaces so "cell_biology_notes.pdf" reads as "cell biology notes".
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	title := strings.ReplaceAll(base, "_", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return filename
	}
	return title
}
