package driven

// ConfigStore provides access to user configuration.
// Backed by a TOML file in the ragdoc config directory.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" when absent.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 when absent.
	GetInt(key string) int

	// GetFloat retrieves a float value, or 0 when absent.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value, or false when absent.
	GetBool(key string) bool

	// Set stores a configuration value.
	Set(key string, value any) error

	// Save persists the configuration to disk.
	Save() error
}

// Configuration keys for pipeline tunables.
const (
	ConfigKeyChunkSize           = "rag.chunk_size"
	ConfigKeyChunkOverlap        = "rag.chunk_overlap"
	ConfigKeyTopK                = "rag.top_k"
	ConfigKeySimilarityThreshold = "rag.similarity_threshold"
	ConfigKeyMaxContextLength    = "rag.max_context_length"
	ConfigKeyEmbedBatchSize      = "embedding.batch_size"
	ConfigKeyEmbedModel          = "embedding.model"
	ConfigKeyEmbedProvider       = "embedding.provider"
	ConfigKeyLLMModel            = "llm.model"
	ConfigKeyLLMProvider         = "llm.provider"
	ConfigKeyOpenAIAPIKey        = "openai.api_key"
	ConfigKeyOllamaBaseURL       = "ollama.base_url"
	ConfigKeyIngestWorkers       = "ingest.workers"
	ConfigKeyMaxFileSize         = "ingest.max_file_size"
	ConfigKeyMaxPages            = "ingest.max_pages"
)
