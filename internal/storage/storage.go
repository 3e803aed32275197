// Package storage defines the persistence interface for documents, chunks,
// users, and sessions.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/manabu/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence operations backing the service. Chunks are
// immutable once written; the vector index is rebuilt from ListChunks at
// startup.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunksByDocumentID(ctx context.Context, docID string) ([]models.Chunk, error)
	ListChunks(ctx context.Context, offset, limit int) ([]models.Chunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error
	CountChunks(ctx context.Context) (int64, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Session operations
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error

	Close() error
}
