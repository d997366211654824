package refdex

import "context"

// Completer sends a single prompt to a language model.
type Completer interface {
	// Complete returns the model's text response for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer derives descriptions and keywords from text.
// Failures are reported as EMODEL.
type Summarizer interface {
	// Describe returns a short natural language description of text.
	Describe(ctx context.Context, text string) (string, error)

	// ExtractKeywords returns a raw comma-separated keyword list.
	// A positive minCount selects question mode and asks for at least
	// that many keywords.
	ExtractKeywords(ctx context.Context, text string, minCount int) (string, error)
}

// KeywordCache stores refined keyword sets generated for questions.
type KeywordCache interface {
	// GetKeywords returns the cached keywords for question.
	// The bool result is false on a cache miss.
	GetKeywords(ctx context.Context, question string) ([]string, bool, error)

	// SetKeywords caches keywords for question.
	SetKeywords(ctx context.Context, question string, keywords []string) error
}
