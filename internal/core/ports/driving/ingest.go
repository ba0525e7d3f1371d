package driving

import (
	"context"
	"io"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

// Ingestor accepts PDF documents and manages their vectorization
// lifecycle.
type Ingestor interface {
	// Ingest registers a PDF and queues it for background
	// vectorization. Returns the created document with status
	// pending. Fails fast on size violations.
	Ingest(ctx context.Context, filename string, r io.Reader, size int64) (*domain.Document, error)

	// Reingest resets a document to pending and queues it again,
	// deleting its existing index entries first. Returns
	// domain.ErrIngestInProgress while a worker owns the document.
	Reingest(ctx context.Context, documentID string) error

	// Status returns the current vectorization status.
	Status(ctx context.Context, documentID string) (domain.VectorizationStatus, error)

	// List returns all known documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and all its index entries.
	Delete(ctx context.Context, documentID string) error

	// UpdateMetadata merges metadata into the document record and
	// propagates it to the document's index entries.
	UpdateMetadata(ctx context.Context, documentID string, metadata map[string]any) error

	// Stats returns index-wide chunk statistics.
	Stats(ctx context.Context) (*driven.IndexStats, error)

	// Wait blocks until every queued ingestion has finished.
	// Intended for CLI runs and tests.
	Wait()
}
