// Package embedding provides batching and degradation policy on top of
// a raw embedding provider.
package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// Ensure Batcher implements the interface.
var _ driven.ChunkEmbedder = (*Batcher)(nil)

// Default configuration values.
const (
	// DefaultBatchSize is the number of texts sent per provider call.
	DefaultBatchSize = 50

	// DefaultMaxTextLength truncates oversized inputs before sending.
	DefaultMaxTextLength = 8000

	// DefaultRetries is the number of additional attempts per batch.
	DefaultRetries = 2

	// DefaultBatchInterval paces batch-to-batch calls as backpressure
	// against provider rate limits.
	DefaultBatchInterval = 200 * time.Millisecond
)

// Config holds configuration for the batcher.
type Config struct {
	// BatchSize is the number of texts per provider call (default: 50).
	BatchSize int

	// MaxTextLength truncates longer inputs (default: 8000).
	MaxTextLength int

	// Retries is the number of additional attempts per failed batch
	// (default: 2).
	Retries int

	// BatchInterval is the minimum spacing between batch calls
	// (default: 200ms).
	BatchInterval time.Duration
}

// Batcher wraps an EmbeddingService with input truncation, batch
// splitting, retries, pacing, and the zero-vector degradation policy:
// a batch that still fails after retries yields zero vectors of the
// provider dimensionality instead of aborting the caller. This keeps
// ingestion progress monotonic at the cost of degraded recall for that
// batch.
type Batcher struct {
	svc       driven.EmbeddingService
	batchSize int
	maxLen    int
	retries   int
	limiter   *rate.Limiter
}

// NewBatcher wraps svc with the batching policy.
func NewBatcher(svc driven.EmbeddingService, cfg Config) *Batcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = DefaultBatchInterval
	}

	return &Batcher{
		svc:       svc,
		batchSize: cfg.BatchSize,
		maxLen:    cfg.MaxTextLength,
		retries:   cfg.Retries,
		limiter:   rate.NewLimiter(rate.Every(cfg.BatchInterval), 1),
	}
}

// EmbedChunks embeds all texts in sequential batches and reports how
// many items degraded to zero vectors. The returned slice is always
// index-aligned with texts. An error is returned only when the context
// is cancelled; provider failures degrade instead.
func (b *Batcher) EmbedChunks(ctx context.Context, texts []string) ([][]float32, int, error) {
	vectors := make([][]float32, len(texts))
	degraded := 0

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, end-start)
		for i, text := range texts[start:end] {
			batch[i] = b.truncate(text)
		}

		if err := b.limiter.Wait(ctx); err != nil {
			return nil, degraded, err
		}

		embeddings, err := b.embedWithRetry(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, degraded, ctx.Err()
			}
			logger.Warn("Embedding batch %d-%d failed after retries, degrading to zero vectors: %v", start, end-1, err)
			for i := start; i < end; i++ {
				vectors[i] = make([]float32, b.svc.Dimensions())
			}
			degraded += end - start
			continue
		}

		copy(vectors[start:end], embeddings)
	}

	return vectors, degraded, nil
}

// Embed generates a single embedding, used for queries. Unlike the
// chunk path there is no degradation: an unreachable provider surfaces
// as domain.ErrEmbedding.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := b.embedWithRetry(ctx, []string{b.truncate(text)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrEmbedding)
	}
	return embeddings[0], nil
}

// EmbedBatch embeds one batch without degradation, satisfying the
// EmbeddingService interface.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	truncated := make([]string, len(texts))
	for i, text := range texts {
		truncated[i] = b.truncate(text)
	}
	embeddings, err := b.embedWithRetry(ctx, truncated)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	return embeddings, nil
}

// embedWithRetry calls the provider, retrying transient failures.
func (b *Batcher) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying embedding batch (attempt %d/%d)", attempt, b.retries)
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		embeddings, err := b.svc.EmbedBatch(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// truncate bounds the input to the provider maximum length.
func (b *Batcher) truncate(text string) string {
	if len(text) > b.maxLen {
		return text[:b.maxLen]
	}
	return text
}

// Dimensions returns the wrapped provider's vector size.
func (b *Batcher) Dimensions() int {
	return b.svc.Dimensions()
}

// ModelName returns the wrapped provider's model name.
func (b *Batcher) ModelName() string {
	return b.svc.ModelName()
}

// Ping validates the wrapped provider is reachable.
func (b *Batcher) Ping(ctx context.Context) error {
	return b.svc.Ping(ctx)
}

// Close releases the wrapped provider's resources.
func (b *Batcher) Close() error {
	return b.svc.Close()
}
