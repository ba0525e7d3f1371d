package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockIngestor records ingested filenames.
type mockIngestor struct {
	mu        sync.Mutex
	ingested  []string
	ingestErr error
}

func (m *mockIngestor) Ingest(_ context.Context, filename string, r io.Reader, _ int64) (*domain.Document, error) {
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.ingested = append(m.ingested, filename)
	m.mu.Unlock()
	return &domain.Document{ID: "doc-" + filename, Filename: filename}, nil
}

func (m *mockIngestor) filenames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingested...)
}

func (m *mockIngestor) Reingest(_ context.Context, _ string) error { return nil }
func (m *mockIngestor) Status(_ context.Context, _ string) (domain.VectorizationStatus, error) {
	return domain.StatusPending, nil
}
func (m *mockIngestor) List(_ context.Context) ([]domain.Document, error) { return nil, nil }
func (m *mockIngestor) Delete(_ context.Context, _ string) error          { return nil }
func (m *mockIngestor) UpdateMetadata(_ context.Context, _ string, _ map[string]any) error {
	return nil
}
func (m *mockIngestor) Stats(_ context.Context) (*driven.IndexStats, error) { return nil, nil }
func (m *mockIngestor) Wait()                                               {}

// --- Tests ---

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("paper.pdf"))
	assert.True(t, isPDF("/inbox/PAPER.PDF"))
	assert.False(t, isPDF("notes.txt"))
	assert.False(t, isPDF("pdf"))
	assert.False(t, isPDF("archive.pdf.bak"))
}

func TestIngestExistingPicksUpOnlyPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("not a pdf"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0700))

	ingestor := &mockIngestor{}
	w := New(ingestor, dir, time.Millisecond)

	require.NoError(t, w.ingestExisting(context.Background()))
	assert.Equal(t, []string{"a.pdf"}, ingestor.filenames())

	// Ingested files are removed from the inbox; others stay.
	_, err := os.Stat(filepath.Join(dir, "a.pdf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "b.txt"))
	assert.NoError(t, err)
}

func TestIngestFileKeepsFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF a"), 0600))

	ingestor := &mockIngestor{ingestErr: errors.New("queue full")}
	w := New(ingestor, dir, time.Millisecond)

	w.ingestFile(context.Background(), path)

	_, err := os.Stat(path)
	assert.NoError(t, err, "failed ingestions leave the file for a retry")
}

func TestScheduleIngestWaitsForSettle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF a"), 0600))

	ingestor := &mockIngestor{}
	w := New(ingestor, dir, 10*time.Millisecond)

	w.scheduleIngest(context.Background(), path)
	// Repeated write events reset the timer instead of stacking timers.
	w.scheduleIngest(context.Background(), path)

	require.Eventually(t, func() bool {
		return len(ingestor.filenames()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.pdf"}, ingestor.filenames())
}

func TestScheduleIngestCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF a"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	ingestor := &mockIngestor{}
	w := New(ingestor, dir, 10*time.Millisecond)

	w.scheduleIngest(ctx, path)
	cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ingestor.filenames())
}

func TestNewDefaultsSettleDelay(t *testing.T) {
	w := New(&mockIngestor{}, t.TempDir(), 0)
	assert.Equal(t, DefaultSettleDelay, w.settle)
}
