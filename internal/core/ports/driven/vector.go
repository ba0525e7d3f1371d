package driven

import "context"

// VectorIndex stores (vector, text, metadata) triples keyed by chunk ID
// and supports nearest-neighbour search restricted to a document subset.
//
// The index performs no deduplication or thresholding itself; that is
// the retriever's job. Similarity is cosine similarity in [0, 1],
// derived from distance as 1 - distance.
type VectorIndex interface {
	// Add upserts entries keyed by chunk ID.
	Add(ctx context.Context, entries []VectorEntry) error

	// Query returns the k entries nearest to the query vector, ranked
	// by descending similarity. When documentIDs is non-empty the
	// search is restricted to chunks belonging to those documents
	// before ranking.
	Query(ctx context.Context, embedding []float32, k int, documentIDs []string) ([]VectorHit, error)

	// GetByDocument returns every entry belonging to a document,
	// in unspecified order.
	GetByDocument(ctx context.Context, documentID string) ([]VectorHit, error)

	// DeleteByDocument removes every chunk belonging to a document.
	// Used on document deletion and on re-ingestion.
	DeleteByDocument(ctx context.Context, documentID string) error

	// UpdateDocumentMetadata merges metadata into every entry of a
	// document.
	UpdateDocumentMetadata(ctx context.Context, documentID string, metadata map[string]any) error

	// Count returns the total number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Stats returns total and per-document chunk counts.
	Stats(ctx context.Context) (*IndexStats, error)

	// Close releases resources.
	Close() error
}

// VectorEntry is one indexed chunk.
type VectorEntry struct {
	// ChunkID keys the entry; adding an existing ID replaces it.
	ChunkID string

	// Embedding is the chunk vector.
	Embedding []float32

	// Content is the chunk text.
	Content string

	// Metadata must include "document_id" and "page" for filtering
	// and citation.
	Metadata map[string]any
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Metadata is the entry metadata as stored.
	Metadata map[string]any

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}

// IndexStats summarises index contents.
type IndexStats struct {
	// TotalChunks is the number of indexed chunks.
	TotalChunks int

	// DocumentChunks maps document ID to its chunk count.
	DocumentChunks map[string]int
}

// DocumentID returns the owning document ID from the hit metadata.
func (h VectorHit) DocumentID() string {
	id, _ := h.Metadata["document_id"].(string)
	return id
}

// Page returns the 1-based page number from the hit metadata.
func (h VectorHit) Page() int {
	return metadataInt(h.Metadata, "page")
}

// Position returns the chunk sequence number within its page.
func (h VectorHit) Position() int {
	return metadataInt(h.Metadata, "position")
}

func metadataInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
