// Package openai binds the language model operations to OpenAI-compatible
// chat completion endpoints. Ollama is served through its /v1 endpoint.
package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/refdex"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultStop ends generation at instruction markers that
// instruction-tuned local models tend to echo.
var DefaultStop = []string{"[INST]", "[/INST]"}

// Ensure Completer implements refdex.Completer at compile time.
var _ refdex.Completer = (*Completer)(nil)

// Completer implements refdex.Completer using the Chat Completions API.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	stop        []string
	timeout     time.Duration
}

// Option configures a Completer.
type Option func(*Completer)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Completer) {
		c.temperature = t
	}
}

// WithStop replaces the stop sequences.
func WithStop(stop ...string) Option {
	return func(c *Completer) {
		c.stop = stop
	}
}

// WithTimeout bounds a single completion request.
func WithTimeout(d time.Duration) Option {
	return func(c *Completer) {
		c.timeout = d
	}
}

// NewCompleter creates a Completer for model. An empty baseURL selects the
// OpenAI API; Ollama expects e.g. http://127.0.0.1:11434/v1.
func NewCompleter(apiKey, baseURL, model string, opts ...Option) *Completer {
	c := &Completer{
		model: model,
		stop:  DefaultStop,
	}
	for _, opt := range opts {
		opt(c)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if c.timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: c.timeout}
	}
	c.client = openai.NewClientWithConfig(config)
	return c
}

// Complete sends prompt as a single user message.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", refdex.Errorf(refdex.EINVALID, "prompt required")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		Stop:        c.stop,
	})
	if err != nil {
		return "", refdex.Errorf(refdex.EMODEL, "%s: %v", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", refdex.Errorf(refdex.EMODEL, "%s returned no choices", c.model)
	}

	return resp.Choices[0].Message.Content, nil
}
