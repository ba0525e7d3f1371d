package driven

import (
	"context"
	"io"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// TextExtractor opens a PDF byte stream and returns per-page raw text
// plus document metadata.
//
// Extraction of an individual corrupt page is skipped rather than
// aborting the whole document; skipped pages are recorded as warnings
// in the extraction metadata. A stream that cannot be parsed as a PDF,
// or that yields zero pages, fails with domain.ErrExtraction.
type TextExtractor interface {
	// Extract parses the PDF and returns ordered pages and metadata.
	Extract(ctx context.Context, r io.ReaderAt, size int64) (*domain.Extraction, error)
}
