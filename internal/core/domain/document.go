package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// VectorizationStatus tracks a document's progress through the
// ingestion pipeline.
type VectorizationStatus string

const (
	// StatusPending means the document is uploaded but not yet processed.
	StatusPending VectorizationStatus = "pending"

	// StatusProcessing means an ingestion worker owns the document.
	StatusProcessing VectorizationStatus = "processing"

	// StatusCompleted means all chunks are embedded and indexed.
	StatusCompleted VectorizationStatus = "completed"

	// StatusFailed means extraction or chunking failed; the document
	// must be explicitly re-ingested.
	StatusFailed VectorizationStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s VectorizationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine permits moving
// from s to next. Re-ingestion resets any state back to pending;
// completed and failed are otherwise terminal.
func (s VectorizationStatus) CanTransitionTo(next VectorizationStatus) bool {
	if next == StatusPending {
		// Explicit re-ingestion reset.
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Document represents an ingested PDF with its extraction metadata.
// The ingestion subsystem owns the lifecycle; the query subsystem
// only reads it.
type Document struct {
	// ID is the unique identifier assigned at upload.
	ID string

	// Filename is the original upload filename.
	Filename string

	// Title is the document title, either embedded PDF metadata or
	// the first non-empty line of page one.
	Title string

	// Author is the embedded PDF author, if any.
	Author string

	// PageCount is the number of pages in the PDF.
	PageCount int

	// Size is the PDF size in bytes.
	Size int64

	// Metadata contains free-form extraction metadata
	// (subject, producer, character counts, warnings).
	Metadata map[string]any

	// Status is the vectorization lifecycle flag.
	Status VectorizationStatus

	// ChunkCount is the number of chunks indexed for this document.
	ChunkCount int

	// DegradedChunks counts chunks whose embeddings degraded to zero
	// vectors because an embedding batch failed.
	DegradedChunks int

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed state.
	UpdatedAt time.Time
}

// Stem returns the filename without its extension, used as the stable
// prefix for chunk IDs. Falls back to the document ID for documents
// without a filename.
func (d *Document) Stem() string {
	if d.Filename == "" {
		return d.ID
	}
	return strings.TrimSuffix(d.Filename, filepath.Ext(d.Filename))
}

// DisplayName returns the best human-readable name for citations.
func (d *Document) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Filename != "" {
		return d.Filename
	}
	return d.ID
}

// Page is one page of extracted text, before or after cleaning.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the page text.
	Text string
}

// Extraction is the output of the PDF text extractor: ordered pages
// plus document-level metadata.
type Extraction struct {
	Pages    []Page
	Metadata ExtractionMetadata
}

// ExtractionMetadata carries document-level facts recovered from the PDF.
type ExtractionMetadata struct {
	PageCount        int
	Title            string
	Author           string
	Subject          string
	Creator          string
	Producer         string
	CreationDate     time.Time
	ModificationDate time.Time

	// TotalCharacters and TotalWords are computed over all extracted
	// page text.
	TotalCharacters int
	TotalWords      int

	// Warnings notes pages that could not be extracted. A non-empty
	// list does not fail the extraction.
	Warnings []string
}

// AsMap flattens the metadata into a document metadata map.
func (m ExtractionMetadata) AsMap() map[string]any {
	out := map[string]any{
		"page_count":       m.PageCount,
		"total_characters": m.TotalCharacters,
		"total_words":      m.TotalWords,
	}
	if m.Subject != "" {
		out["subject"] = m.Subject
	}
	if m.Creator != "" {
		out["creator"] = m.Creator
	}
	if m.Producer != "" {
		out["producer"] = m.Producer
	}
	if !m.CreationDate.IsZero() {
		out["creation_date"] = m.CreationDate.Format(time.RFC3339)
	}
	if !m.ModificationDate.IsZero() {
		out["modification_date"] = m.ModificationDate.Format(time.RFC3339)
	}
	if m.PageCount > 0 {
		out["average_chars_per_page"] = m.TotalCharacters / m.PageCount
		out["average_words_per_page"] = m.TotalWords / m.PageCount
	}
	if len(m.Warnings) > 0 {
		out["warnings"] = m.Warnings
	}
	return out
}

// ChunkKindParagraph is the only chunk kind currently produced.
const ChunkKindParagraph = "paragraph"

// Chunk represents a retrievable unit of cleaned document text.
// Chunks are immutable once created; re-ingestion replaces them wholesale.
type Chunk struct {
	// ID is deterministic: {stem}_page{page}_chunk{seq}.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Page is the 1-based page the chunk came from.
	Page int

	// Position is the chunk sequence number within its page.
	Position int

	// Content is the chunk text.
	Content string

	// Kind is the chunking strategy that produced this chunk.
	Kind string

	// Embedding is the vector representation, populated at embed time.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// ChunkID builds the deterministic chunk identifier.
func ChunkID(stem string, page, seq int) string {
	return fmt.Sprintf("%s_page%d_chunk%d", stem, page, seq)
}
