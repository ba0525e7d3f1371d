package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: this is separate from VectorIndex, which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-ada-002)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one
	// provider call. The result is index-aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768, 1536).
	// This must match the VectorIndex configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. Used by health checks.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChunkEmbedder extends EmbeddingService with the bulk ingestion path.
// Implementations own batching, pacing and retries, and degrade failed
// batches to zero vectors rather than failing the whole ingestion.
type ChunkEmbedder interface {
	EmbeddingService

	// EmbedChunks embeds all texts and reports how many degraded to
	// zero vectors. The result is index-aligned with texts. An error
	// is returned only on context cancellation.
	EmbedChunks(ctx context.Context, texts []string) ([][]float32, int, error)
}
