package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the PDF stream could not be parsed or
	// contained no pages. Fatal to the ingestion attempt.
	ErrExtraction = errors.New("pdf extraction failed")

	// ErrEmbedding indicates the embedding provider was unreachable
	// after retries. Per-item malformed responses degrade to zero
	// vectors instead of raising this.
	ErrEmbedding = errors.New("embedding provider unavailable")

	// ErrIndexUnavailable indicates the vector index rejected an
	// add/query call.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrAnswerGeneration indicates the language model call failed or
	// timed out. The query pipeline converts this into a degraded
	// textual answer.
	ErrAnswerGeneration = errors.New("answer generation failed")

	// ErrIngestInProgress indicates the document is currently owned by
	// an ingestion worker and cannot be re-queued.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// ErrFileTooLarge indicates the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyPages indicates the PDF exceeds the page limit.
	ErrTooManyPages = errors.New("too many pages")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
