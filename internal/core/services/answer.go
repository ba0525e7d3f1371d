package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driving"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// Default generation tunables.
const (
	// DefaultLLMTimeout bounds one generation call.
	DefaultLLMTimeout = 30 * time.Second

	// DefaultMaxTokens caps the generated answer length.
	DefaultMaxTokens = 1000

	// DefaultTemperature is the generation temperature.
	DefaultTemperature = 0.7

	// sourceExcerptLength truncates cited chunk text for display.
	sourceExcerptLength = 200
)

// AnswerConfig holds tunables for answer generation.
type AnswerConfig struct {
	// Timeout bounds one LLM call (default: 30s).
	Timeout time.Duration

	// MaxTokens caps the generated answer length (default: 1000).
	MaxTokens int

	// Temperature is the generation temperature (default: 0.7).
	Temperature float64

	// MaxContextQA caps question-answering context (default: 4000).
	MaxContextQA int

	// MaxContextSummary caps summary context (default: 6000).
	MaxContextSummary int
}

// AnswerService answers questions and writes summaries over the
// indexed corpus. Retrieval misses and generation failures produce
// designed fallback texts rather than hard errors, so a flaky LLM
// degrades the answer instead of the command.
type AnswerService struct {
	retriever *Retriever
	index     driven.VectorIndex
	docStore  driven.DocumentStore
	embedder  driven.EmbeddingService
	llm       driven.LLMService
	prompts   driven.PromptStore

	timeout           time.Duration
	maxTokens         int
	temperature       float64
	maxContextQA      int
	maxContextSummary int
}

// NewAnswerService creates the answer service.
func NewAnswerService(
	retriever *Retriever,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg AnswerConfig,
) *AnswerService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxContextQA <= 0 {
		cfg.MaxContextQA = DefaultMaxContextQA
	}
	if cfg.MaxContextSummary <= 0 {
		cfg.MaxContextSummary = DefaultMaxContextSummary
	}

	return &AnswerService{
		retriever:         retriever,
		index:             index,
		docStore:          docStore,
		embedder:          embedder,
		llm:               llm,
		prompts:           prompts,
		timeout:           cfg.Timeout,
		maxTokens:         cfg.MaxTokens,
		temperature:       cfg.Temperature,
		maxContextQA:      cfg.MaxContextQA,
		maxContextSummary: cfg.MaxContextSummary,
	}
}

// Ask retrieves relevant chunks and generates an answer with sources.
func (s *AnswerService) Ask(ctx context.Context, question string, documentIDs []string) (*domain.Answer, error) {
	results, err := s.retriever.Retrieve(ctx, question, documentIDs)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		tpl, err := s.prompts.Load(driven.PromptFallbackAnswer)
		if err != nil {
			return nil, fmt.Errorf("load fallback prompt: %w", err)
		}
		logger.Debug("No chunks above threshold, returning fallback answer")
		return &domain.Answer{Text: fmt.Sprintf(tpl, question)}, nil
	}

	assembled := assembleContext(searchResultBlocks(results), s.maxContextQA)

	text, err := s.generate(ctx, driven.PromptAnswerSystem, driven.PromptAnswerUser, question, assembled)
	if err != nil {
		logger.Warn("Answer generation failed, returning degraded answer: %v", err)
		errText, perr := s.prompts.Load(driven.PromptErrorAnswer)
		if perr != nil {
			return nil, fmt.Errorf("load error prompt: %w", perr)
		}
		return &domain.Answer{Text: errText}, nil
	}

	return &domain.Answer{Text: text, Sources: buildSources(results)}, nil
}

// Summarize generates a focused summary over whole documents.
func (s *AnswerService) Summarize(ctx context.Context, documentIDs []string, kind domain.SummaryKind) (string, error) {
	if len(documentIDs) == 0 {
		return "", fmt.Errorf("%w: no documents selected", domain.ErrInvalidInput)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown summary kind %q", domain.ErrInvalidInput, kind)
	}

	blocks, err := s.documentBlocks(ctx, documentIDs)
	if err != nil {
		return "", err
	}
	if len(blocks) == 0 {
		return "", fmt.Errorf("%w: selected documents have no indexed content", domain.ErrNotFound)
	}

	assembled := assembleContext(blocks, s.maxContextSummary)

	text, err := s.generate(ctx, driven.PromptSummarySystem, driven.PromptSummaryUser, kind.Description(), assembled)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerGeneration, err)
	}
	return text, nil
}

// Health reports whether the embedding and LLM providers are reachable.
func (s *AnswerService) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var errs []error
	if err := s.embedder.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err))
	}
	if err := s.llm.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err))
	}
	return errors.Join(errs...)
}

// generate loads the prompt pair and runs one bounded LLM call.
func (s *AnswerService) generate(ctx context.Context, systemName, userName, arg, assembled string) (string, error) {
	systemTpl, err := s.prompts.Load(systemName)
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", systemName, err)
	}
	userTpl, err := s.prompts.Load(userName)
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", userName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: systemTpl},
		{Role: "user", Content: fmt.Sprintf(userTpl, arg, assembled)},
	}, driven.ChatOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// documentBlocks loads every indexed chunk of the selected documents,
// in page order, as labelled context blocks.
func (s *AnswerService) documentBlocks(ctx context.Context, documentIDs []string) ([]contextBlock, error) {
	var blocks []contextBlock
	sourceNum := 0

	for _, id := range documentIDs {
		doc, err := s.docStore.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", id, err)
		}

		hits, err := s.index.GetByDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
		}

		sort.Slice(hits, func(i, j int) bool {
			if hits[i].Page() != hits[j].Page() {
				return hits[i].Page() < hits[j].Page()
			}
			return hits[i].Position() < hits[j].Position()
		})

		for _, hit := range hits {
			sourceNum++
			blocks = append(blocks, contextBlock{
				label:   fmt.Sprintf("[source %d: %s - page %d]", sourceNum, doc.DisplayName(), hit.Page()),
				content: hit.Content,
			})
		}
	}

	return blocks, nil
}

// buildSources converts retrieval results into display citations.
func buildSources(results []domain.SearchResult) []domain.Source {
	sources := make([]domain.Source, len(results))
	for i, res := range results {
		excerpt := res.Content
		if len(excerpt) > sourceExcerptLength {
			excerpt = truncateRuneSafe(excerpt, sourceExcerptLength) + truncationSuffix
		}
		sources[i] = domain.Source{
			Excerpt:  excerpt,
			Page:     res.Page,
			Document: res.DocumentTitle,
			Score:    res.Score,
		}
	}
	return sources
}
