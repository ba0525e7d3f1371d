package driving

import (
	"context"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// Answerer answers natural-language questions against the indexed
// corpus.
type Answerer interface {
	// Ask retrieves relevant chunks and generates an answer with
	// source citations. When retrieval finds nothing, or generation
	// fails, a designed fallback text is returned with empty sources;
	// the query path never surfaces a hard failure as an error for
	// those branches.
	Ask(ctx context.Context, question string, documentIDs []string) (*domain.Answer, error)

	// Summarize generates a focused summary over whole documents.
	Summarize(ctx context.Context, documentIDs []string, kind domain.SummaryKind) (string, error)

	// Health reports whether the embedding and LLM providers are
	// reachable.
	Health(ctx context.Context) error
}
