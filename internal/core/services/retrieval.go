package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// Default retrieval tunables.
const (
	// DefaultTopK is the number of results returned per query.
	DefaultTopK = 5

	// DefaultSimilarityThreshold is the minimum similarity a hit must
	// reach to be considered relevant.
	DefaultSimilarityThreshold = 0.7

	// dedupJaccardThreshold is the word-set overlap above which two
	// chunks count as near-duplicates.
	dedupJaccardThreshold = 0.8

	// overFetchFactor widens the index query so thresholding and
	// deduplication still leave enough results.
	overFetchFactor = 2
)

// RetrievalConfig holds tunables for the retriever.
type RetrievalConfig struct {
	// TopK is the maximum number of results per query (default: 5).
	TopK int

	// SimilarityThreshold drops hits scoring below it (default: 0.7).
	SimilarityThreshold float64
}

// Retriever embeds a query and returns the most relevant chunks,
// filtered by similarity threshold and deduplicated by content overlap.
type Retriever struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	docStore  driven.DocumentStore
	topK      int
	threshold float64
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
	cfg RetrievalConfig,
) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}

	return &Retriever{
		embedder:  embedder,
		index:     index,
		docStore:  docStore,
		topK:      cfg.TopK,
		threshold: cfg.SimilarityThreshold,
	}
}

// Retrieve returns up to TopK relevant chunks for the query, optionally
// restricted to the given documents. An empty result is not an error;
// it means nothing cleared the similarity threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentIDs []string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch so thresholding and dedup still leave TopK results.
	hits, err := r.index.Query(ctx, embedding, r.topK*overFetchFactor, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	titles := make(map[string]string)
	results := make([]domain.SearchResult, 0, r.topK)
	for _, hit := range hits {
		if hit.Similarity < r.threshold {
			continue
		}
		if isNearDuplicate(hit.Content, results) {
			logger.Debug("Dropping near-duplicate chunk %s", hit.ChunkID)
			continue
		}

		results = append(results, domain.SearchResult{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID(),
			Content:       hit.Content,
			Page:          hit.Page(),
			DocumentTitle: r.documentTitle(ctx, hit.DocumentID(), titles),
			Score:         hit.Similarity,
			Rank:          len(results) + 1,
		})
		if len(results) == r.topK {
			break
		}
	}

	logger.Debug("Retrieved %d of %d hits above threshold %.2f", len(results), len(hits), r.threshold)
	return results, nil
}

// documentTitle resolves a document display name, caching per query.
func (r *Retriever) documentTitle(ctx context.Context, documentID string, cache map[string]string) string {
	if title, ok := cache[documentID]; ok {
		return title
	}

	title := documentID
	doc, err := r.docStore.GetDocument(ctx, documentID)
	if err == nil {
		title = doc.DisplayName()
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Debug("Failed to resolve document %s: %v", documentID, err)
	}
	cache[documentID] = title
	return title
}

// isNearDuplicate reports whether content overlaps an already accepted
// result beyond the Jaccard threshold.
func isNearDuplicate(content string, accepted []domain.SearchResult) bool {
	words := wordSet(content)
	for i := range accepted {
		if jaccard(words, wordSet(accepted[i].Content)) > dedupJaccardThreshold {
			return true
		}
	}
	return false
}

// wordSet lowercases and splits content into its set of words.
func wordSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(content)) {
		set[word] = struct{}{}
	}
	return set
}

// jaccard computes intersection-over-union of two word sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
