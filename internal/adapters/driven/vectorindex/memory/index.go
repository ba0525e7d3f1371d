// Package memory provides an in-memory vector index using brute-force
// cosine similarity. Suitable for single-process use and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one stored chunk.
type entry struct {
	chunkID   string
	embedding []float32
	content   string
	metadata  map[string]any
}

// Index is an in-memory implementation of driven.VectorIndex.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewIndex creates a new empty in-memory vector index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]*entry),
	}
}

// Add upserts entries keyed by chunk ID.
func (idx *Index) Add(_ context.Context, entries []driven.VectorEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		metadata := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			metadata[k] = v
		}
		idx.entries[e.ChunkID] = &entry{
			chunkID:   e.ChunkID,
			embedding: append([]float32(nil), e.Embedding...),
			content:   e.Content,
			metadata:  metadata,
		}
	}
	return nil
}

// Query returns the k nearest entries by cosine similarity, optionally
// restricted to a set of document IDs.
func (idx *Index) Query(_ context.Context, embedding []float32, k int, documentIDs []string) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	var filter map[string]bool
	if len(documentIDs) > 0 {
		filter = make(map[string]bool, len(documentIDs))
		for _, id := range documentIDs {
			filter[id] = true
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.entries))
	for _, e := range idx.entries {
		if filter != nil {
			docID, _ := e.metadata["document_id"].(string)
			if !filter[docID] {
				continue
			}
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    e.chunkID,
			Content:    e.content,
			Metadata:   copyMetadata(e.metadata),
			Similarity: cosineSimilarity(embedding, e.embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// GetByDocument returns every entry belonging to a document.
func (idx *Index) GetByDocument(_ context.Context, documentID string) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []driven.VectorHit
	for _, e := range idx.entries {
		if docID, _ := e.metadata["document_id"].(string); docID == documentID {
			hits = append(hits, driven.VectorHit{
				ChunkID:  e.chunkID,
				Content:  e.content,
				Metadata: copyMetadata(e.metadata),
			})
		}
	}
	return hits, nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (idx *Index) DeleteByDocument(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, e := range idx.entries {
		if docID, _ := e.metadata["document_id"].(string); docID == documentID {
			delete(idx.entries, id)
		}
	}
	return nil
}

// UpdateDocumentMetadata merges metadata into every entry of a document.
func (idx *Index) UpdateDocumentMetadata(_ context.Context, documentID string, metadata map[string]any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range idx.entries {
		if docID, _ := e.metadata["document_id"].(string); docID == documentID {
			for k, v := range metadata {
				e.metadata[k] = v
			}
		}
	}
	return nil
}

// Count returns the total number of indexed chunks.
func (idx *Index) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries), nil
}

// Stats returns total and per-document chunk counts.
func (idx *Index) Stats(_ context.Context) (*driven.IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := &driven.IndexStats{
		TotalChunks:    len(idx.entries),
		DocumentChunks: make(map[string]int),
	}
	for _, e := range idx.entries {
		if docID, _ := e.metadata["document_id"].(string); docID != "" {
			stats.DocumentChunks[docID]++
		}
	}
	return stats, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// cosineSimilarity computes the cosine similarity of two vectors,
// clamped to [0, 1]. A similarity threshold therefore applies to the
// raw cosine; negative, zero or mismatched vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos > 1 {
		cos = 1
	}
	if cos < 0 {
		cos = 0
	}
	return cos
}

// copyMetadata returns a shallow copy so callers cannot mutate stored
// metadata.
func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
