// Package cli implements the ragdoc command-line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/config/file"
	"github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/embedding"
	embeddingollama "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/embedding/openai"
	llmollama "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/llm/openai"
	"github.com/ragdoc-labs/ragdoc-cli/internal/adapters/driven/storage/sqlite"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/services"
	"github.com/ragdoc-labs/ragdoc-cli/internal/extractors/pdf"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
	"github.com/ragdoc-labs/ragdoc-cli/internal/postprocessors"
)

// version is set at build time via -ldflags.
var version = "dev"

// verbose enables debug logging on stderr.
var verbose bool

// Services wired by initServices. Commands check for nil so tests can
// inject fakes.
var (
	configStore   driven.ConfigStore
	ingestService *services.IngestionService
	answerService *services.AnswerService
	store         *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "ragdoc",
	Short: "Ask questions about your PDF library",
	Long: `Ragdoc ingests PDF documents into a local vector index and answers
natural-language questions about them with cited sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// initServices wires adapters from configuration. Idempotent so tests
// can pre-populate the service vars.
func initServices() error {
	if ingestService != nil && answerService != nil {
		return nil
	}

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = cfg

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	store, err = sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	docStore := store.DocumentStore()
	index := store.VectorIndex()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	pipeline := postprocessors.DefaultPipeline(
		cfg.GetInt(driven.ConfigKeyChunkSize),
		cfg.GetInt(driven.ConfigKeyChunkOverlap),
	)

	ingestService, err = services.NewIngestionService(
		docStore, index, pdf.New(), embedder, pipeline,
		services.IngestionConfig{
			Workers:     cfg.GetInt(driven.ConfigKeyIngestWorkers),
			MaxFileSize: int64(cfg.GetInt(driven.ConfigKeyMaxFileSize)),
			MaxPages:    cfg.GetInt(driven.ConfigKeyMaxPages),
		})
	if err != nil {
		return fmt.Errorf("start ingestion service: %w", err)
	}

	retriever := services.NewRetriever(embedder, index, docStore,
		services.RetrievalConfig{
			TopK:                cfg.GetInt(driven.ConfigKeyTopK),
			SimilarityThreshold: cfg.GetFloat(driven.ConfigKeySimilarityThreshold),
		})

	answerService = services.NewAnswerService(retriever, index, docStore, embedder, llm, prompts,
		services.AnswerConfig{
			MaxContextQA: cfg.GetInt(driven.ConfigKeyMaxContextLength),
		})

	return nil
}

// buildEmbedder selects the embedding provider from configuration and
// wraps it with the ingestion batcher. OpenAI is used when an API key
// is configured, Ollama otherwise.
func buildEmbedder(cfg driven.ConfigStore) (driven.ChunkEmbedder, error) {
	provider := cfg.GetString(driven.ConfigKeyEmbedProvider)
	if provider == "" {
		if cfg.GetString(driven.ConfigKeyOpenAIAPIKey) != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	var svc driven.EmbeddingService
	switch provider {
	case "openai":
		s, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey: cfg.GetString(driven.ConfigKeyOpenAIAPIKey),
			Model:  cfg.GetString(driven.ConfigKeyEmbedModel),
		})
		if err != nil {
			return nil, fmt.Errorf("configure openai embeddings: %w", err)
		}
		svc = s
	case "ollama":
		svc = embeddingollama.NewEmbeddingService(embeddingollama.Config{
			BaseURL: cfg.GetString(driven.ConfigKeyOllamaBaseURL),
			Model:   cfg.GetString(driven.ConfigKeyEmbedModel),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	return embedding.NewBatcher(svc, embedding.Config{
		BatchSize: cfg.GetInt(driven.ConfigKeyEmbedBatchSize),
	}), nil
}

// buildLLM selects the LLM provider from configuration.
func buildLLM(cfg driven.ConfigStore) (driven.LLMService, error) {
	provider := cfg.GetString(driven.ConfigKeyLLMProvider)
	if provider == "" {
		if cfg.GetString(driven.ConfigKeyOpenAIAPIKey) != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	switch provider {
	case "openai":
		svc, err := llmopenai.NewLLMService(llmopenai.Config{
			APIKey: cfg.GetString(driven.ConfigKeyOpenAIAPIKey),
			Model:  cfg.GetString(driven.ConfigKeyLLMModel),
		})
		if err != nil {
			return nil, fmt.Errorf("configure openai llm: %w", err)
		}
		return svc, nil
	case "ollama":
		return llmollama.NewLLMService(llmollama.Config{
			BaseURL: cfg.GetString(driven.ConfigKeyOllamaBaseURL),
			Model:   cfg.GetString(driven.ConfigKeyLLMModel),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// closeServices drains queued work and releases resources.
func closeServices() {
	if ingestService != nil {
		// Let queued ingestions finish before shutting down.
		done := make(chan struct{})
		go func() {
			ingestService.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Minute):
			logger.Warn("Timed out waiting for queued ingestions")
		}
		_ = ingestService.Close()
	}
	if store != nil {
		_ = store.Close()
	}
}
