package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driving"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.Ingestor = (*IngestionService)(nil)

// Default ingestion limits.
const (
	// DefaultWorkers is the number of background ingestion workers.
	DefaultWorkers = 4

	// DefaultMaxFileSize is the upload size limit in bytes (20 MB).
	DefaultMaxFileSize = 20 * 1024 * 1024

	// DefaultMaxPages is the per-document page limit.
	DefaultMaxPages = 300

	// jobQueueSize bounds the number of queued ingestions.
	jobQueueSize = 64
)

// IngestionConfig holds tunables for the ingestion service.
type IngestionConfig struct {
	// Workers is the background worker count (default: 4).
	Workers int

	// MaxFileSize is the upload size limit in bytes (default: 20 MB).
	MaxFileSize int64

	// MaxPages is the per-document page limit (default: 300).
	MaxPages int

	// UploadDir is where raw PDFs are kept for re-ingestion.
	// If empty, defaults to ~/.ragdoc/uploads.
	UploadDir string
}

// ingestJob is one queued document.
type ingestJob struct {
	documentID string
	data       []byte
}

// IngestionService accepts PDFs, runs the extraction and chunking
// pipeline, embeds chunks and populates the vector index. Processing
// happens on a fixed pool of background workers; Ingest returns as soon
// as the document is registered and queued.
type IngestionService struct {
	docStore  driven.DocumentStore
	index     driven.VectorIndex
	extractor driven.TextExtractor
	embedder  driven.ChunkEmbedder
	pipeline  driven.PostProcessorPipeline

	maxFileSize int64
	maxPages    int
	uploadDir   string

	jobs    chan ingestJob
	workers sync.WaitGroup
	pending sync.WaitGroup

	// processing tracks documents currently owned by a worker.
	mu         sync.Mutex
	processing map[string]bool
	closed     bool
}

// NewIngestionService creates the service and starts its worker pool.
// Callers must Close it to stop the workers.
func NewIngestionService(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	extractor driven.TextExtractor,
	embedder driven.ChunkEmbedder,
	pipeline driven.PostProcessorPipeline,
	cfg IngestionConfig,
) (*IngestionService, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.UploadDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.UploadDir = filepath.Join(home, ".ragdoc", "uploads")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	s := &IngestionService{
		docStore:    docStore,
		index:       index,
		extractor:   extractor,
		embedder:    embedder,
		pipeline:    pipeline,
		maxFileSize: cfg.MaxFileSize,
		maxPages:    cfg.MaxPages,
		uploadDir:   cfg.UploadDir,
		jobs:        make(chan ingestJob, jobQueueSize),
		processing:  make(map[string]bool),
	}

	for i := 0; i < cfg.Workers; i++ {
		s.workers.Add(1)
		go s.worker()
	}

	return s, nil
}

// Ingest registers a PDF and queues it for background vectorization.
func (s *IngestionService) Ingest(ctx context.Context, filename string, r io.Reader, size int64) (*domain.Document, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}
	if size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, size, s.maxFileSize)
	}

	// Read with a hard cap; size may be unknown (-1) or lie.
	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: upload exceeds limit of %d bytes", domain.ErrFileTooLarge, s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Size:      int64(len(data)),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Keep the raw PDF so the document can be re-ingested later.
	if err := os.WriteFile(s.uploadPath(doc.ID), data, 0600); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	if err := s.enqueue(ctx, ingestJob{documentID: doc.ID, data: data}); err != nil {
		return nil, err
	}

	logger.Info("Queued %s for ingestion as %s", filename, doc.ID)
	return doc, nil
}

// Reingest resets a document to pending and queues it again.
func (s *IngestionService) Reingest(ctx context.Context, documentID string) error {
	s.mu.Lock()
	if s.processing[documentID] {
		s.mu.Unlock()
		return fmt.Errorf("%w: document %s", domain.ErrIngestInProgress, documentID)
	}
	s.mu.Unlock()

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	data, err := os.ReadFile(s.uploadPath(documentID))
	if err != nil {
		return fmt.Errorf("reading stored upload: %w", err)
	}

	// Old entries go first so a failed re-ingestion cannot leave stale
	// chunks behind a completed status.
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	doc.Status = domain.StatusPending
	doc.ChunkCount = 0
	doc.DegradedChunks = 0
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if err := s.enqueue(ctx, ingestJob{documentID: documentID, data: data}); err != nil {
		return err
	}

	logger.Info("Re-queued document %s for ingestion", documentID)
	return nil
}

// Status returns the current vectorization status.
func (s *IngestionService) Status(ctx context.Context, documentID string) (domain.VectorizationStatus, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	return doc.Status, nil
}

// List returns all known documents, newest first.
func (s *IngestionService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Delete removes a document, its index entries and its stored upload.
func (s *IngestionService) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	if s.processing[documentID] {
		s.mu.Unlock()
		return fmt.Errorf("%w: document %s", domain.ErrIngestInProgress, documentID)
	}
	s.mu.Unlock()

	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := os.Remove(s.uploadPath(documentID)); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove stored upload for %s: %v", documentID, err)
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}

// UpdateMetadata merges metadata into the document record and
// propagates it to the document's index entries.
func (s *IngestionService) UpdateMetadata(ctx context.Context, documentID string, metadata map[string]any) error {
	if len(metadata) == 0 {
		return fmt.Errorf("%w: empty metadata", domain.ErrInvalidInput)
	}

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		doc.Metadata[k] = v
	}
	if title, ok := metadata["title"].(string); ok && title != "" {
		doc.Title = title
	}
	if author, ok := metadata["author"].(string); ok && author != "" {
		doc.Author = author
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := s.index.UpdateDocumentMetadata(ctx, documentID, metadata); err != nil {
		return fmt.Errorf("propagating metadata: %w", err)
	}
	return nil
}

// Stats returns index-wide chunk statistics.
func (s *IngestionService) Stats(ctx context.Context) (*driven.IndexStats, error) {
	return s.index.Stats(ctx)
}

// Wait blocks until every queued ingestion has finished.
func (s *IngestionService) Wait() {
	s.pending.Wait()
}

// Close stops the worker pool after draining queued jobs.
func (s *IngestionService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.jobs)
	s.workers.Wait()
	return nil
}

// enqueue hands a job to the worker pool.
func (s *IngestionService) enqueue(ctx context.Context, job ingestJob) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("ingestion service closed")
	}
	s.pending.Add(1)
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		return nil
	case <-ctx.Done():
		s.pending.Done()
		return ctx.Err()
	}
}

// worker processes queued ingestions until the jobs channel closes.
func (s *IngestionService) worker() {
	defer s.workers.Done()
	for job := range s.jobs {
		s.process(job)
		s.pending.Done()
	}
}

// process runs the full pipeline for one document. Failures mark the
// document failed rather than propagating; the caller polls Status.
func (s *IngestionService) process(job ingestJob) {
	ctx := context.Background()

	s.mu.Lock()
	s.processing[job.documentID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.processing, job.documentID)
		s.mu.Unlock()
	}()

	doc, err := s.docStore.GetDocument(ctx, job.documentID)
	if err != nil {
		logger.Warn("Ingestion worker: document %s vanished: %v", job.documentID, err)
		return
	}

	if err := s.transition(ctx, doc, domain.StatusProcessing); err != nil {
		logger.Warn("Ingestion worker: %v", err)
		return
	}

	if err := s.vectorize(ctx, doc, job.data); err != nil {
		logger.Warn("Ingestion of %s failed: %v", doc.ID, err)
		if terr := s.transition(ctx, doc, domain.StatusFailed); terr != nil {
			logger.Warn("Ingestion worker: %v", terr)
		}
		return
	}

	if err := s.transition(ctx, doc, domain.StatusCompleted); err != nil {
		logger.Warn("Ingestion worker: %v", err)
	}
}

// vectorize extracts, chunks, embeds and indexes one document.
func (s *IngestionService) vectorize(ctx context.Context, doc *domain.Document, data []byte) error {
	logger.Section("Processing %s", doc.DisplayName())

	extraction, err := s.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if extraction.Metadata.PageCount > s.maxPages {
		return fmt.Errorf("%w: %d pages exceeds limit of %d",
			domain.ErrTooManyPages, extraction.Metadata.PageCount, s.maxPages)
	}

	doc.PageCount = extraction.Metadata.PageCount
	doc.Title = extraction.Metadata.Title
	doc.Author = extraction.Metadata.Author
	doc.Metadata = extraction.Metadata.AsMap()

	chunks, err := s.pipeline.Process(ctx, doc, extraction.Pages)
	if err != nil {
		return fmt.Errorf("post-process: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no text chunks produced", domain.ErrExtraction)
	}
	logger.Debug("Produced %d chunks from %d pages", len(chunks), doc.PageCount)

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, degraded, err := s.embedder.EmbedChunks(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if degraded > 0 {
		logger.Warn("%d of %d chunks in %s degraded to zero vectors", degraded, len(chunks), doc.ID)
	}

	entries := make([]driven.VectorEntry, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		entries[i] = driven.VectorEntry{
			ChunkID:   chunks[i].ID,
			Embedding: chunks[i].Embedding,
			Content:   chunks[i].Content,
			Metadata:  chunks[i].Metadata,
		}
	}

	if err := s.index.Add(ctx, entries); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	doc.ChunkCount = len(chunks)
	doc.DegradedChunks = degraded
	logger.Info("Indexed %d chunks for %s", len(chunks), doc.ID)
	return nil
}

// transition validates and persists a status change.
func (s *IngestionService) transition(ctx context.Context, doc *domain.Document, next domain.VectorizationStatus) error {
	if !doc.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid status transition %s -> %s for %s", doc.Status, next, doc.ID)
	}
	doc.Status = next
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving status %s for %s: %w", next, doc.ID, err)
	}
	return nil
}

// uploadPath returns the stored upload location for a document.
func (s *IngestionService) uploadPath(documentID string) string {
	return filepath.Join(s.uploadDir, documentID+".pdf")
}
