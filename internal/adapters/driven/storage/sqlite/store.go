// Package sqlite provides persistent document and vector storage backed
// by a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document store and vector index interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragdoc/data/ragdoc.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragdoc", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ragdoc.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// VectorIndex returns a VectorIndex interface backed by this store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, filename, title, author, page_count, size, metadata,
			 status, chunk_count, degraded_chunks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			author = excluded.author,
			page_count = excluded.page_count,
			size = excluded.size,
			metadata = excluded.metadata,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			degraded_chunks = excluded.degraded_chunks,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Filename, doc.Title, doc.Author, doc.PageCount, doc.Size,
		string(metadataJSON), string(doc.Status), doc.ChunkCount,
		doc.DegradedChunks, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, title, author, page_count, size, metadata,
		       status, chunk_count, degraded_chunks, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, filename, title, author, page_count, size, metadata,
		       status, chunk_count, degraded_chunks, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document record.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex over the chunks table.
// Similarity search is brute force: candidate rows are scanned and
// scored in Go. Fine for the corpus sizes a single-user CLI handles.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Add upserts entries keyed by chunk ID.
func (s *vectorIndex) Add(ctx context.Context, entries []driven.VectorEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		docID, _ := entry.Metadata["document_id"].(string)
		embeddingBlob := float32SliceToBytes(entry.Embedding)

		if _, err := stmt.ExecContext(ctx, entry.ChunkID, docID, entry.Content,
			embeddingBlob, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns the k nearest entries by cosine similarity, optionally
// restricted to a set of document IDs.
func (s *vectorIndex) Query(ctx context.Context, embedding []float32, k int, documentIDs []string) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	query := "SELECT id, content, embedding, metadata FROM chunks"
	args := make([]any, 0, len(documentIDs))
	if len(documentIDs) > 0 {
		placeholders := strings.Repeat("?,", len(documentIDs))
		query += " WHERE document_id IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		hit, stored, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hit.Similarity = cosineSimilarity(embedding, stored)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
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
func (s *vectorIndex) GetByDocument(ctx context.Context, documentID string) ([]driven.VectorHit, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, content, embedding, metadata
		FROM chunks WHERE document_id = ?
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		hit, _, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return hits, nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *vectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// UpdateDocumentMetadata merges metadata into every entry of a document.
func (s *vectorIndex) UpdateDocumentMetadata(ctx context.Context, documentID string, metadata map[string]any) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `
		SELECT id, metadata FROM chunks WHERE document_id = ?
	`, documentID)
	if err != nil {
		return fmt.Errorf("querying chunk metadata: %w", err)
	}

	type update struct {
		id       string
		metadata string
	}
	var updates []update
	for rows.Next() {
		var id, metadataJSON string
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			rows.Close()
			return fmt.Errorf("scanning chunk metadata: %w", err)
		}

		merged := make(map[string]any)
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &merged); err != nil {
				rows.Close()
				return fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}
		for k, v := range metadata {
			merged[k] = v
		}

		mergedJSON, err := json.Marshal(merged)
		if err != nil {
			rows.Close()
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		updates = append(updates, update{id: id, metadata: string(mergedJSON)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating chunk metadata: %w", err)
	}
	rows.Close()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, "UPDATE chunks SET metadata = ? WHERE id = ?", u.metadata, u.id); err != nil {
			return fmt.Errorf("updating chunk metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Count returns the total number of indexed chunks.
func (s *vectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Stats returns total and per-document chunk counts.
func (s *vectorIndex) Stats(ctx context.Context) (*driven.IndexStats, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, COUNT(*) FROM chunks GROUP BY document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk stats: %w", err)
	}
	defer rows.Close()

	stats := &driven.IndexStats{
		DocumentChunks: make(map[string]int),
	}
	for rows.Next() {
		var docID string
		var count int
		if err := rows.Scan(&docID, &count); err != nil {
			return nil, fmt.Errorf("scanning chunk stats: %w", err)
		}
		stats.DocumentChunks[docID] = count
		stats.TotalChunks += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk stats: %w", err)
	}

	return stats, nil
}

// Close is a no-op; the lifetime of the connection belongs to the
// parent Store.
func (s *vectorIndex) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans one document row via the given Scan function.
func scanDocument(scan func(...any) error) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON, status string

	if err := scan(&doc.ID, &doc.Filename, &doc.Title, &doc.Author,
		&doc.PageCount, &doc.Size, &metadataJSON, &status,
		&doc.ChunkCount, &doc.DegradedChunks, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.VectorizationStatus(status)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanHit scans a chunk row into a VectorHit plus its stored embedding.
func scanHit(rows *sql.Rows) (driven.VectorHit, []float32, error) {
	var hit driven.VectorHit
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&hit.ChunkID, &hit.Content, &embeddingBlob, &metadataJSON); err != nil {
		return hit, nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &hit.Metadata); err != nil {
			return hit, nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return hit, bytesToFloat32Slice(embeddingBlob), nil
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
