package domain

// SearchResult is a retrieved chunk with its similarity score.
// Results are ephemeral: produced per query and never persisted.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID links to the owning document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Page is the 1-based page number the chunk came from.
	Page int

	// DocumentTitle is the display name of the owning document.
	DocumentTitle string

	// Score is the cosine similarity in [0, 1].
	Score float64

	// Rank is the 1-based position as returned by the index.
	Rank int
}

// Source is a citation surfaced to the caller alongside an answer.
type Source struct {
	// Excerpt is the chunk text truncated for display.
	Excerpt string

	// Page is the 1-based page number.
	Page int

	// Document is the display name of the cited document.
	Document string

	// Score is the similarity score of the underlying chunk.
	Score float64
}

// Answer is the result of a question against the indexed corpus.
type Answer struct {
	// Text is the generated answer, or a designed fallback message
	// when retrieval found nothing or generation failed.
	Text string

	// Sources cites the chunks the answer was conditioned on.
	Sources []Source
}

// SummaryKind selects the focus of a document summary.
type SummaryKind string

const (
	// SummaryGeneral covers the whole document.
	SummaryGeneral SummaryKind = "general"

	// SummaryMethodology focuses on methods and experimental design.
	SummaryMethodology SummaryKind = "methodology"

	// SummaryResults focuses on findings.
	SummaryResults SummaryKind = "results"

	// SummaryConclusion focuses on conclusions and future work.
	SummaryConclusion SummaryKind = "conclusion"
)

// Valid reports whether k is a known summary kind.
func (k SummaryKind) Valid() bool {
	switch k {
	case SummaryGeneral, SummaryMethodology, SummaryResults, SummaryConclusion:
		return true
	}
	return false
}

// Description returns the instruction fragment for the summary prompt.
func (k SummaryKind) Description() string {
	switch k {
	case SummaryMethodology:
		return "focusing on the research methodology and experimental design"
	case SummaryResults:
		return "focusing on the main results and findings"
	case SummaryConclusion:
		return "focusing on the conclusions and directions for future work"
	default:
		return "covering the key content of the whole document"
	}
}
