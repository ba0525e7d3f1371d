package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

func testDoc() *domain.Document {
	return &domain.Document{
		ID:       "doc-1",
		Filename: "paper.pdf",
	}
}

// paragraphs joins fixed-size paragraphs with blank lines.
func paragraphs(size, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = strings.Repeat(string(rune('a'+i)), size)
	}
	return strings.Join(parts, "\n\n")
}

func process(t *testing.T, p *Processor, text string) []domain.Chunk {
	t.Helper()
	_, chunks, err := p.Process(context.Background(), testDoc(), []domain.Page{{Number: 1, Text: text}}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return chunks
}

func TestProcessorShortPageSingleChunk(t *testing.T) {
	chunks := process(t, New(), "Just a short page of text.")

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "Just a short page of text." {
		t.Errorf("unexpected content: %q", chunks[0].Content)
	}
}

func TestProcessorEmptyPageNoChunks(t *testing.T) {
	if chunks := process(t, New(), "   \n\n  "); len(chunks) != 0 {
		t.Fatalf("got %d chunks from empty page, want 0", len(chunks))
	}
}

func TestProcessorOversizedParagraphEmittedWhole(t *testing.T) {
	// A single paragraph beyond the chunk size is never split
	// mid-paragraph; the trailing overlap seed becomes a final chunk.
	text := strings.Repeat("x", 1500)
	chunks := process(t, New(), text)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0].Content) != 1500 {
		t.Errorf("first chunk length = %d, want 1500", len(chunks[0].Content))
	}
	if len(chunks[1].Content) != DefaultChunkOverlap {
		t.Errorf("trailing chunk length = %d, want %d", len(chunks[1].Content), DefaultChunkOverlap)
	}
}

func TestProcessorParagraphAccumulationWithOverlap(t *testing.T) {
	// Five 500-char paragraphs: two fill past the chunk size, the
	// overlap seed plus two more fill past it again, and the remainder
	// becomes the final chunk.
	chunks := process(t, New(), paragraphs(500, 5))

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	// Each chunk after the first starts with the previous chunk's
	// trailing overlap.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		seed := prev[len(prev)-DefaultChunkOverlap:]
		if !strings.HasPrefix(chunks[i].Content, seed) {
			t.Errorf("chunk %d does not start with previous chunk's overlap", i)
		}
	}
}

func TestProcessorDeterministicIDs(t *testing.T) {
	text := paragraphs(500, 5)

	first := process(t, New(), text)
	second := process(t, New(), text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d content differs", i)
		}
	}
}

func TestProcessorChunkIDsAndMetadata(t *testing.T) {
	chunks := process(t, New(), paragraphs(500, 3))

	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for i, chunk := range chunks {
		wantID := domain.ChunkID("paper", 1, i)
		if chunk.ID != wantID {
			t.Errorf("chunk %d ID = %s, want %s", i, chunk.ID, wantID)
		}
		if chunk.DocumentID != "doc-1" {
			t.Errorf("chunk %d DocumentID = %s", i, chunk.DocumentID)
		}
		if chunk.Metadata["page"] != 1 {
			t.Errorf("chunk %d page metadata = %v", i, chunk.Metadata["page"])
		}
		if chunk.Metadata["position"] != i {
			t.Errorf("chunk %d position metadata = %v", i, chunk.Metadata["position"])
		}
		if chunk.Kind != domain.ChunkKindParagraph {
			t.Errorf("chunk %d kind = %s", i, chunk.Kind)
		}
	}
}

func TestProcessorMultiplePages(t *testing.T) {
	doc := testDoc()
	pages := []domain.Page{
		{Number: 1, Text: "Page one content here."},
		{Number: 2, Text: "Page two content here."},
	}

	_, chunks, err := New().Process(context.Background(), doc, pages, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].ID != "paper_page1_chunk0" || chunks[1].ID != "paper_page2_chunk0" {
		t.Errorf("unexpected IDs: %s, %s", chunks[0].ID, chunks[1].ID)
	}
}

func TestNewClampsExcessiveOverlap(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(150))
	if p.overlap != 25 {
		t.Errorf("overlap = %d, want 25", p.overlap)
	}
}
