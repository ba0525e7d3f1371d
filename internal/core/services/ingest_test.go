package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmemory "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/storage/memory"
	vecmemory "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/vectorindex/memory"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/postprocessors"
)

// --- Mock implementations ---

// mockExtractor returns a canned extraction.
type mockExtractor struct {
	extraction *domain.Extraction
	err        error
}

func (m *mockExtractor) Extract(_ context.Context, _ io.ReaderAt, _ int64) (*domain.Extraction, error) {
	return m.extraction, m.err
}

// mockChunkEmbedder produces unit vectors, degrading the first few.
type mockChunkEmbedder struct {
	mockEmbedder
	degraded int
}

func (m *mockChunkEmbedder) EmbedChunks(_ context.Context, texts []string) ([][]float32, int, error) {
	vecs := make([][]float32, len(texts))
	degraded := 0
	for i := range texts {
		if i < m.degraded {
			vecs[i] = make([]float32, 3)
			degraded++
			continue
		}
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, degraded, nil
}

// --- Helpers ---

func testExtraction(pages int) *domain.Extraction {
	text := strings.Repeat("This page talks about retrieval pipelines and indexes. ", 8)
	extraction := &domain.Extraction{
		Metadata: domain.ExtractionMetadata{
			PageCount: pages,
			Title:     "Sample Paper",
			Author:    "Jane Doe",
		},
	}
	for i := 1; i <= pages; i++ {
		extraction.Pages = append(extraction.Pages, domain.Page{Number: i, Text: text})
	}
	return extraction
}

type ingestFixture struct {
	svc      *IngestionService
	docStore *docmemory.DocumentStore
	index    *vecmemory.Index
}

func newIngestFixture(t *testing.T, extractor *mockExtractor, embedder *mockChunkEmbedder, cfg IngestionConfig) *ingestFixture {
	t.Helper()

	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}

	docStore := docmemory.NewDocumentStore()
	index := vecmemory.NewIndex()
	svc, err := NewIngestionService(docStore, index, extractor, embedder,
		postprocessors.DefaultPipeline(0, 0), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return &ingestFixture{svc: svc, docStore: docStore, index: index}
}

func (f *ingestFixture) ingest(t *testing.T, filename string, data []byte) *domain.Document {
	t.Helper()
	doc, err := f.svc.Ingest(context.Background(), filename, bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return doc
}

var pdfBytes = []byte("%PDF-1.4 fake content for ingestion tests")

// --- Tests ---

func TestIngestHappyPath(t *testing.T) {
	uploadDir := t.TempDir()
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(2)},
		&mockChunkEmbedder{},
		IngestionConfig{UploadDir: uploadDir})
	ctx := context.Background()

	doc := f.ingest(t, "paper.pdf", pdfBytes)
	assert.Equal(t, domain.StatusPending, doc.Status)

	f.svc.Wait()

	got, err := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "Sample Paper", got.Title)
	assert.Equal(t, "Jane Doe", got.Author)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, 2, got.ChunkCount)
	assert.Zero(t, got.DegradedChunks)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, got.ChunkCount, count)

	// The raw PDF is kept for later re-ingestion.
	stored, err := os.ReadFile(f.svc.uploadPath(doc.ID))
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, stored)
}

func TestIngestRejectsOversizedUpload(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{MaxFileSize: 10})
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, "big.pdf", bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	require.ErrorIs(t, err, domain.ErrFileTooLarge)

	// A lying size header does not bypass the cap.
	_, err = f.svc.Ingest(ctx, "liar.pdf", bytes.NewReader(pdfBytes), 5)
	require.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, "", bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Ingest(ctx, "empty.pdf", bytes.NewReader(nil), 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestTooManyPagesFails(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(3)},
		&mockChunkEmbedder{},
		IngestionConfig{MaxPages: 2})
	ctx := context.Background()

	doc := f.ingest(t, "thick.pdf", pdfBytes)
	f.svc.Wait()

	status, err := f.svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, status)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestExtractionFailureFails(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{err: errors.New("not a pdf")},
		&mockChunkEmbedder{},
		IngestionConfig{})
	ctx := context.Background()

	doc := f.ingest(t, "broken.pdf", pdfBytes)
	f.svc.Wait()

	status, err := f.svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, status)
}

func TestIngestRecordsDegradedChunks(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(2)},
		&mockChunkEmbedder{degraded: 1},
		IngestionConfig{})
	ctx := context.Background()

	doc := f.ingest(t, "paper.pdf", pdfBytes)
	f.svc.Wait()

	got, err := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	// A degraded embedding batch still completes the document.
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 1, got.DegradedChunks)
}

func TestReingestReplacesChunks(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(2)},
		&mockChunkEmbedder{},
		IngestionConfig{})
	ctx := context.Background()

	doc := f.ingest(t, "paper.pdf", pdfBytes)
	f.svc.Wait()

	require.NoError(t, f.svc.Reingest(ctx, doc.ID))
	f.svc.Wait()

	got, err := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, got.ChunkCount, count, "re-ingestion must not leave duplicate chunks")
}

func TestReingestUnknownDocument(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})

	err := f.svc.Reingest(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesEverything(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})
	ctx := context.Background()

	doc := f.ingest(t, "paper.pdf", pdfBytes)
	f.svc.Wait()

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	_, err := f.docStore.GetDocument(ctx, doc.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = os.Stat(f.svc.uploadPath(doc.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteUnknownDocument(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})

	err := f.svc.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateMetadataPropagatesToIndex(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})
	ctx := context.Background()

	doc := f.ingest(t, "paper.pdf", pdfBytes)
	f.svc.Wait()

	err := f.svc.UpdateMetadata(ctx, doc.ID, map[string]any{
		"title":  "Corrected Title",
		"author": "J. Doe",
		"year":   2021,
	})
	require.NoError(t, err)

	got, err := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corrected Title", got.Title)
	assert.Equal(t, "J. Doe", got.Author)
	assert.Equal(t, 2021, got.Metadata["year"])

	hits, err := f.index.GetByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Corrected Title", hits[0].Metadata["title"])
}

func TestUpdateMetadataEmpty(t *testing.T) {
	f := newIngestFixture(t,
		&mockExtractor{extraction: testExtraction(1)},
		&mockChunkEmbedder{},
		IngestionConfig{})

	err := f.svc.UpdateMetadata(context.Background(), "any", nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
