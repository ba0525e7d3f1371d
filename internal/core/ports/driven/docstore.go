package driven

import (
	"context"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// DocumentStore persists document metadata and vectorization status.
// Chunk text and vectors live in the VectorIndex, not here.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document record.
	DeleteDocument(ctx context.Context, id string) error
}
