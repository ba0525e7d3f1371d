package driven

import "context"

// LLMService provides chat-style language model calls for answer
// generation and summarisation.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini, gpt-3.5-turbo)
//   - Ollama (local models)
type LLMService interface {
	// Chat sends an ordered list of role-tagged messages and returns
	// one text completion.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. Used by health checks.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
