package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

func TestPromptStoreCreatesDefaultsLazily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Constructor must not touch the filesystem.
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Contains(t, prompt, "[source N]")

	// First Load materialises the default files and README.
	for _, name := range []string{
		driven.PromptAnswerSystem,
		driven.PromptAnswerUser,
		driven.PromptSummarySystem,
		driven.PromptSummaryUser,
		driven.PromptFallbackAnswer,
		driven.PromptErrorAnswer,
	} {
		_, err := os.Stat(filepath.Join(dir, name+".txt"))
		assert.NoError(t, err, "missing default file for %s", name)
	}
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.NoError(t, err)
}

func TestPromptStoreLoadsCustomisedFile(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer briefly.\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, driven.PromptAnswerSystem+".txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "Answer briefly.", prompt, "file content is trimmed")
}

func TestPromptStoreReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)

	// Edit the file on disk; the cached value survives until Reload.
	path := filepath.Join(dir, driven.PromptAnswerUser+".txt")
	require.NoError(t, os.WriteFile(path, []byte("Question: %s\n%s"), 0600))

	cached, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)
	assert.Equal(t, "Question: %s\n%s", fresh)
}

func TestPromptStoreUnknownName(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	require.Error(t, err)
}

func TestPromptStoreDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}
