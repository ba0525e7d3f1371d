package driven

// PromptStore provides prompt templates for LLM calls.
// Templates are user-editable files with embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}

// Prompt names.
const (
	// PromptAnswerSystem is the system instruction for question
	// answering. No format arguments.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser wraps the question and assembled context.
	// Format arguments: question, context.
	PromptAnswerUser = "answer_user"

	// PromptSummarySystem is the system instruction for summaries.
	// No format arguments.
	PromptSummarySystem = "summary_system"

	// PromptSummaryUser wraps the summary focus and context.
	// Format arguments: focus description, context.
	PromptSummaryUser = "summary_user"

	// PromptFallbackAnswer is returned when retrieval finds nothing.
	// Format argument: question.
	PromptFallbackAnswer = "fallback_answer"

	// PromptErrorAnswer is returned when answer generation fails.
	// No format arguments.
	PromptErrorAnswer = "error_answer"
)
