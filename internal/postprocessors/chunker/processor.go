// Package chunker provides a paragraph-accumulating text chunking
// processor with configurable overlap.
package chunker

import (
	"context"
	"strings"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// paragraphSeparator joins paragraphs inside an accumulating chunk.
const paragraphSeparator = "\n\n"

// Processor splits cleaned page text into overlapping chunks.
// It implements the PostProcessor interface.
//
// Paragraphs are accumulated into a running buffer; once the buffer
// reaches the chunk size a chunk is emitted and the next buffer is
// seeded with the emitted chunk's trailing overlap. A single paragraph
// longer than the chunk size is emitted whole: the chunker never splits
// mid-paragraph.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process creates chunks from the document's pages.
// Input chunks are ignored; this processor creates new chunks.
// Chunk IDs are deterministic across repeated runs on identical input.
func (p *Processor) Process(_ context.Context, doc *domain.Document, pages []domain.Page, _ []domain.Chunk) ([]domain.Page, []domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		chunks = append(chunks, p.chunkPage(doc, page)...)
	}
	return pages, chunks, nil
}

// chunkPage splits one page's text into chunks.
// Every non-empty page produces at least one chunk.
func (p *Processor) chunkPage(doc *domain.Document, page domain.Page) []domain.Chunk {
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return nil
	}

	paragraphs := strings.Split(text, paragraphSeparator)

	var chunks []domain.Chunk
	var buffer string
	seq := 0

	emit := func(content string) {
		chunks = append(chunks, p.newChunk(doc, page.Number, seq, content))
		seq++
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if buffer != "" {
			buffer += paragraphSeparator + paragraph
		} else {
			buffer = paragraph
		}

		if len(buffer) >= p.chunkSize {
			emit(buffer)

			// Seed the next buffer with the trailing overlap of the
			// emitted chunk.
			if p.overlap > 0 && len(buffer) > p.overlap {
				buffer = buffer[len(buffer)-p.overlap:]
			} else {
				buffer = ""
			}
		}
	}

	if strings.TrimSpace(buffer) != "" {
		emit(buffer)
	}

	return chunks
}

// newChunk builds a chunk with its deterministic ID and metadata.
func (p *Processor) newChunk(doc *domain.Document, pageNumber, seq int, content string) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(doc.Stem(), pageNumber, seq),
		DocumentID: doc.ID,
		Page:       pageNumber,
		Position:   seq,
		Content:    content,
		Kind:       domain.ChunkKindParagraph,
		Metadata: map[string]any{
			"document_id": doc.ID,
			"page":        pageNumber,
			"position":    seq,
			"chunk_size":  len(content),
			"chunk_type":  domain.ChunkKindParagraph,
			"filename":    doc.Filename,
		},
	}
}
