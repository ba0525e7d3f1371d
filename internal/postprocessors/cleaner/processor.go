// Package cleaner provides a page text normalisation processor.
package cleaner

import (
	"context"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/textclean"
)

// Processor rewrites page text through textclean.Clean.
// It implements the PostProcessor interface. Pages that clean to the
// empty string are dropped: they contribute nothing to chunking.
type Processor struct{}

// New creates a new cleaner processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process cleans each page's text and drops empty pages.
// Chunks pass through untouched.
func (p *Processor) Process(_ context.Context, _ *domain.Document, pages []domain.Page, chunks []domain.Chunk) ([]domain.Page, []domain.Chunk, error) {
	cleaned := make([]domain.Page, 0, len(pages))
	for _, page := range pages {
		text := textclean.Clean(page.Text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, domain.Page{
			Number: page.Number,
			Text:   text,
		})
	}
	return cleaned, chunks, nil
}
