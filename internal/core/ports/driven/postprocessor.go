package driven

import (
	"context"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// PostProcessor processes extracted page text to produce chunks.
// PostProcessors are chained in a pipeline (e.g. cleaning, chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document with its extracted pages and returns
	// chunks. A processor that rewrites page text (e.g. the cleaner)
	// mutates doc.Pages and passes chunks through; a processor that
	// creates chunks (e.g. the chunker) receives nil and returns new
	// chunks.
	Process(ctx context.Context, doc *domain.Document, pages []domain.Page, chunks []domain.Chunk) ([]domain.Page, []domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document's pages through all processors in
	// order and returns the final chunks.
	Process(ctx context.Context, doc *domain.Document, pages []domain.Page) ([]domain.Chunk, error)
}
