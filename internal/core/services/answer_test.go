package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLM returns a fixed completion and records the last call.
type mockLLM struct {
	completion string
	err        error
	pingErr    error

	lastMessages []driven.ChatMessage
	lastOptions  driven.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.lastMessages = messages
	m.lastOptions = opts
	return m.completion, m.err
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return m.pingErr }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts serves templates from a map.
type mockPrompts struct {
	templates map[string]string
}

func (m *mockPrompts) Load(name string) (string, error) {
	tpl, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return tpl, nil
}

func testPrompts() *mockPrompts {
	return &mockPrompts{templates: map[string]string{
		driven.PromptAnswerSystem:   "Answer strictly from the excerpts.",
		driven.PromptAnswerUser:     "Question: %s\n\n%s",
		driven.PromptSummarySystem:  "Summarise strictly from the excerpts.",
		driven.PromptSummaryUser:    "Write a summary %s.\n\n%s",
		driven.PromptFallbackAnswer: "No indexed content matched: %q",
		driven.PromptErrorAnswer:    "Generation failed. Please try again.",
	}}
}

// --- Helpers ---

func newTestAnswerService(index *mockIndex, llm *mockLLM, embedder *mockEmbedder) *AnswerService {
	docStore := testDocStore()
	retriever := NewRetriever(embedder, index, docStore, RetrievalConfig{})
	return NewAnswerService(retriever, index, docStore, embedder, llm, testPrompts(), AnswerConfig{})
}

// --- Tests ---

func TestAskGeneratesAnswerWithSources(t *testing.T) {
	index := &mockIndex{hits: []driven.VectorHit{
		hit("c1", "doc-a", "transformers use self attention layers", 0.95),
		hit("c2", "doc-b", "positional encodings inject order information", 0.85),
	}}
	llm := &mockLLM{completion: "Self attention [source 1]."}
	svc := newTestAnswerService(index, llm, &mockEmbedder{vec: []float32{1}})

	answer, err := svc.Ask(context.Background(), "how do transformers work", nil)
	require.NoError(t, err)
	assert.Equal(t, "Self attention [source 1].", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "Attention Is All You Need", answer.Sources[0].Document)
	assert.Equal(t, 0.95, answer.Sources[0].Score)

	require.Len(t, llm.lastMessages, 2)
	assert.Equal(t, "system", llm.lastMessages[0].Role)
	assert.Equal(t, "user", llm.lastMessages[1].Role)
	assert.Contains(t, llm.lastMessages[1].Content, "Question: how do transformers work")
	assert.Contains(t, llm.lastMessages[1].Content, "[source 1: Attention Is All You Need - page 1]")
	assert.Equal(t, DefaultMaxTokens, llm.lastOptions.MaxTokens)
	assert.Equal(t, DefaultTemperature, llm.lastOptions.Temperature)
}

func TestAskFallbackWhenNothingRelevant(t *testing.T) {
	llm := &mockLLM{completion: "should not be called"}
	svc := newTestAnswerService(&mockIndex{}, llm, &mockEmbedder{vec: []float32{1}})

	answer, err := svc.Ask(context.Background(), "unknown topic", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.Text, `"unknown topic"`)
	assert.Empty(t, answer.Sources)
	assert.Nil(t, llm.lastMessages, "LLM must not be called without context")
}

func TestAskDegradesOnGenerationFailure(t *testing.T) {
	index := &mockIndex{hits: []driven.VectorHit{
		hit("c1", "doc-a", "relevant chunk content", 0.9),
	}}
	llm := &mockLLM{err: errors.New("model overloaded")}
	svc := newTestAnswerService(index, llm, &mockEmbedder{vec: []float32{1}})

	answer, err := svc.Ask(context.Background(), "question", nil)
	require.NoError(t, err, "generation failure degrades the answer, not the call")
	assert.Contains(t, answer.Text, "Generation failed")
	assert.Empty(t, answer.Sources, "a degraded answer carries no citations")
}

func TestAskEmptyCompletionDegrades(t *testing.T) {
	index := &mockIndex{hits: []driven.VectorHit{
		hit("c1", "doc-a", "relevant chunk content", 0.9),
	}}
	svc := newTestAnswerService(index, &mockLLM{completion: ""}, &mockEmbedder{vec: []float32{1}})

	answer, err := svc.Ask(context.Background(), "question", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "Generation failed")
	assert.Empty(t, answer.Sources)
}

func TestAskPropagatesRetrievalError(t *testing.T) {
	svc := newTestAnswerService(&mockIndex{}, &mockLLM{}, &mockEmbedder{err: errors.New("down")})

	_, err := svc.Ask(context.Background(), "question", nil)
	require.Error(t, err)
}

func TestSummarizeValidation(t *testing.T) {
	svc := newTestAnswerService(&mockIndex{}, &mockLLM{}, &mockEmbedder{vec: []float32{1}})

	_, err := svc.Summarize(context.Background(), nil, domain.SummaryGeneral)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Summarize(context.Background(), []string{"doc-a"}, domain.SummaryKind("poetic"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummarizeUnknownDocument(t *testing.T) {
	svc := newTestAnswerService(&mockIndex{}, &mockLLM{}, &mockEmbedder{vec: []float32{1}})

	_, err := svc.Summarize(context.Background(), []string{"missing"}, domain.SummaryGeneral)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummarizeEmptyDocument(t *testing.T) {
	svc := newTestAnswerService(&mockIndex{byDoc: map[string][]driven.VectorHit{}}, &mockLLM{}, &mockEmbedder{vec: []float32{1}})

	_, err := svc.Summarize(context.Background(), []string{"doc-a"}, domain.SummaryGeneral)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummarizeOrdersChunksByPage(t *testing.T) {
	pageHit := func(chunkID, content string, page, position int) driven.VectorHit {
		return driven.VectorHit{
			ChunkID: chunkID,
			Content: content,
			Metadata: map[string]any{
				"document_id": "doc-a",
				"page":        page,
				"position":    position,
			},
		}
	}
	index := &mockIndex{byDoc: map[string][]driven.VectorHit{
		"doc-a": {
			pageHit("c3", "third part of the document", 2, 0),
			pageHit("c1", "first part of the document", 1, 0),
			pageHit("c2", "second part of the document", 1, 1),
		},
	}}
	llm := &mockLLM{completion: "A summary."}
	svc := newTestAnswerService(index, llm, &mockEmbedder{vec: []float32{1}})

	text, err := svc.Summarize(context.Background(), []string{"doc-a"}, domain.SummaryResults)
	require.NoError(t, err)
	assert.Equal(t, "A summary.", text)

	user := llm.lastMessages[1].Content
	assert.Contains(t, user, domain.SummaryResults.Description())
	first := strings.Index(user, "first part")
	second := strings.Index(user, "second part")
	third := strings.Index(user, "third part")
	assert.True(t, first < second && second < third, "chunks must appear in page order")
	assert.Contains(t, user, "[source 1: Attention Is All You Need - page 1]")
	assert.Contains(t, user, "[source 3: Attention Is All You Need - page 2]")
}

func TestSummarizeGenerationFailure(t *testing.T) {
	index := &mockIndex{byDoc: map[string][]driven.VectorHit{
		"doc-a": {hit("c1", "doc-a", "content", 0)},
	}}
	svc := newTestAnswerService(index, &mockLLM{err: errors.New("timeout")}, &mockEmbedder{vec: []float32{1}})

	_, err := svc.Summarize(context.Background(), []string{"doc-a"}, domain.SummaryGeneral)
	require.ErrorIs(t, err, domain.ErrAnswerGeneration)
}

func TestHealth(t *testing.T) {
	svc := newTestAnswerService(&mockIndex{}, &mockLLM{}, &mockEmbedder{vec: []float32{1}})
	require.NoError(t, svc.Health(context.Background()))

	svc = newTestAnswerService(&mockIndex{}, &mockLLM{pingErr: errors.New("llm down")},
		&mockEmbedder{vec: []float32{1}, pingErr: errors.New("embed down")})
	err := svc.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestBuildSourcesTruncatesExcerpts(t *testing.T) {
	long := strings.Repeat("a", sourceExcerptLength+50)
	sources := buildSources([]domain.SearchResult{
		{Content: long, Page: 3, DocumentTitle: "Paper", Score: 0.8},
		{Content: "short", Page: 1, DocumentTitle: "Notes", Score: 0.75},
	})

	require.Len(t, sources, 2)
	assert.Len(t, sources[0].Excerpt, sourceExcerptLength+len(truncationSuffix))
	assert.True(t, strings.HasSuffix(sources[0].Excerpt, truncationSuffix))
	assert.Equal(t, "short", sources[1].Excerpt)
	assert.Equal(t, 3, sources[0].Page)
}

func TestBuildSourcesKeepsExcerptsValidUTF8(t *testing.T) {
	// 2-byte runes behind an odd offset; the cut falls mid-rune
	// unless it backs off.
	long := "a" + strings.Repeat("é", sourceExcerptLength)
	sources := buildSources([]domain.SearchResult{
		{Content: long, Page: 1, DocumentTitle: "Paper", Score: 0.8},
	})

	require.Len(t, sources, 1)
	assert.True(t, utf8.ValidString(sources[0].Excerpt))
	assert.True(t, strings.HasSuffix(sources[0].Excerpt, truncationSuffix))
	assert.LessOrEqual(t, len(sources[0].Excerpt), sourceExcerptLength+len(truncationSuffix))
}
