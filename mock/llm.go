package mock

import (
	"context"

	"github.com/fwojciec/refdex"
)

// Compile-time interface verification.
var (
	_ refdex.Completer    = (*Completer)(nil)
	_ refdex.Summarizer   = (*Summarizer)(nil)
	_ refdex.KeywordCache = (*KeywordCache)(nil)
)

// Completer is a mock implementation of refdex.Completer.
type Completer struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteFn(ctx, prompt)
}

// Summarizer is a mock implementation of refdex.Summarizer.
type Summarizer struct {
	DescribeFn        func(ctx context.Context, text string) (string, error)
	ExtractKeywordsFn func(ctx context.Context, text string, minCount int) (string, error)
}

func (s *Summarizer) Describe(ctx context.Context, text string) (string, error) {
	return s.DescribeFn(ctx, text)
}

func (s *Summarizer) ExtractKeywords(ctx context.Context, text string, minCount int) (string, error) {
	return s.ExtractKeywordsFn(ctx, text, minCount)
}

// KeywordCache is a mock implementation of refdex.KeywordCache.
type KeywordCache struct {
	GetKeywordsFn func(ctx context.Context, question string) ([]string, bool, error)
	SetKeywordsFn func(ctx context.Context, question string, keywords []string) error
}

func (c *KeywordCache) GetKeywords(ctx context.Context, question string) ([]string, bool, error) {
	return c.GetKeywordsFn(ctx, question)
}

func (c *KeywordCache) SetKeywords(ctx context.Context, question string, keywords []string) error {
	return c.SetKeywordsFn(ctx, question, keywords)
}
