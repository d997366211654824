// Package gemini binds the language model operations to Google Gemini.
package gemini

import (
	"context"

	"github.com/fwojciec/refdex"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure Completer implements refdex.Completer at compile time.
var _ refdex.Completer = (*Completer)(nil)

// Completer implements refdex.Completer using Google Gemini.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewCompleter creates a new Completer. An empty model selects DefaultModel.
func NewCompleter(client *genai.Client, model string, temperature float32) *Completer {
	if model == "" {
		model = DefaultModel
	}
	return &Completer{client: client, model: model, temperature: temperature}
}

// Complete sends prompt as a single user turn and returns the response text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", refdex.Errorf(refdex.EINVALID, "prompt required")
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		BuildConfig(c.temperature),
	)
	if err != nil {
		return "", refdex.Errorf(refdex.EMODEL, "gemini: %v", err)
	}
	if result == nil {
		return "", refdex.Errorf(refdex.EMODEL, "gemini returned nil result")
	}

	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for Gemini API calls.
func BuildConfig(temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
}
