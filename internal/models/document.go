// Package models defines core data structures for documents, chunks, retrieval, and answers.
package models

import "time"

// Document represents an uploaded study document with metadata.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Filename  string    `json:"filename" db:"filename"`
	NumPages  int       `json:"num_pages" db:"num_pages"`
	NumChunks int       `json:"num_chunks" db:"num_chunks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a bounded slice of a document's page text, the atomic unit of
// indexing and retrieval. Chunks are created once at ingest time and never
// mutated.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocID      string    `json:"doc_id" db:"doc_id"`
	Title      string    `json:"title" db:"title"`
	Page       int       `json:"page" db:"page"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Text       string    `json:"text" db:"text"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Retrieved is a chunk returned by a vector query with its distance score.
// Lower scores mean more similar (squared Euclidean distance).
type Retrieved struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
