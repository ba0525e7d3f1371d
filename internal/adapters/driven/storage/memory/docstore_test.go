package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

func newDoc(id string, createdAt time.Time) *domain.Document {
	return &domain.Document{
		ID:        id,
		Filename:  id + ".pdf",
		Status:    domain.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := newDoc("doc-1", time.Now())
	doc.Title = "Annual Report"
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", got.Title)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestGetDocumentNotFound(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveDocumentUpdatesExisting(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := newDoc("doc-1", time.Now())
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Status = domain.StatusCompleted
	doc.ChunkCount = 12
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 12, got.ChunkCount)
}

func TestGetDocumentReturnsCopy(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, newDoc("doc-1", time.Now())))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, again.Title)
}

func TestListDocumentsNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, store.SaveDocument(ctx, newDoc("old", base.Add(-2*time.Hour))))
	require.NoError(t, store.SaveDocument(ctx, newDoc("new", base)))
	require.NoError(t, store.SaveDocument(ctx, newDoc("mid", base.Add(-time.Hour))))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "mid", docs[1].ID)
	assert.Equal(t, "old", docs[2].ID)
}

func TestDeleteDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, newDoc("doc-1", time.Now())))
	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent document is not an error.
	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
}
