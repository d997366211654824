// Package summarize derives descriptions and keywords from reference text
// with a language model.
package summarize

import (
	"context"
	"strings"
	"text/template"

	"github.com/fwojciec/refdex"
)

// Default content caps, in runes.
const (
	DefaultDescriptionLimit = 1000
	DefaultKeywordLimit     = 4000
)

// Ensure Summarizer implements refdex.Summarizer at compile time.
var _ refdex.Summarizer = (*Summarizer)(nil)

// Options configures a Summarizer. Empty prompts and non-positive limits
// select the defaults.
type Options struct {
	DescriptionPrompt string
	KeywordsPrompt    string
	QuestionPrompt    string

	DescriptionLimit int
	KeywordLimit     int
}

// OptionsFromConfig returns the Options described by cfg.
func OptionsFromConfig(cfg refdex.LLMConfig) Options {
	return Options{
		DescriptionPrompt: cfg.Prompts.Description,
		KeywordsPrompt:    cfg.Prompts.Keywords,
		QuestionPrompt:    cfg.Prompts.Question,
		DescriptionLimit:  cfg.DescriptionLimit,
		KeywordLimit:      cfg.KeywordLimit,
	}
}

// Summarizer implements refdex.Summarizer over a Completer.
type Summarizer struct {
	completer refdex.Completer

	description *template.Template
	keywords    *template.Template
	question    *template.Template

	descriptionLimit int
	keywordLimit     int
}

// promptData is the data prompt templates are executed with.
type promptData struct {
	Content  string
	MinCount int
}

// New creates a Summarizer. Returns EINVALID if a prompt template does not parse.
func New(completer refdex.Completer, opts Options) (*Summarizer, error) {
	s := &Summarizer{
		completer:        completer,
		descriptionLimit: opts.DescriptionLimit,
		keywordLimit:     opts.KeywordLimit,
	}
	if s.descriptionLimit <= 0 {
		s.descriptionLimit = DefaultDescriptionLimit
	}
	if s.keywordLimit <= 0 {
		s.keywordLimit = DefaultKeywordLimit
	}

	var err error
	if s.description, err = parse("description", opts.DescriptionPrompt, refdex.DefaultDescriptionPrompt); err != nil {
		return nil, err
	}
	if s.keywords, err = parse("keywords", opts.KeywordsPrompt, refdex.DefaultKeywordsPrompt); err != nil {
		return nil, err
	}
	if s.question, err = parse("question", opts.QuestionPrompt, refdex.DefaultQuestionPrompt); err != nil {
		return nil, err
	}
	return s, nil
}

func parse(name, text, fallback string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, refdex.Errorf(refdex.EINVALID, "invalid %s prompt: %v", name, err)
	}
	return tmpl, nil
}

// Describe returns a short description of the leading part of text.
func (s *Summarizer) Describe(ctx context.Context, text string) (string, error) {
	prompt, err := render(s.description, promptData{Content: truncate(text, s.descriptionLimit)})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "describe", prompt)
}

// ExtractKeywords returns the raw keyword list for text. A positive
// minCount switches to the question prompt.
func (s *Summarizer) ExtractKeywords(ctx context.Context, text string, minCount int) (string, error) {
	tmpl := s.keywords
	if minCount > 0 {
		tmpl = s.question
	}
	prompt, err := render(tmpl, promptData{Content: truncate(text, s.keywordLimit), MinCount: minCount})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "extract keywords", prompt)
}

func (s *Summarizer) complete(ctx context.Context, op, prompt string) (string, error) {
	out, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		if refdex.ErrorCode(err) == refdex.EMODEL {
			return "", err
		}
		return "", refdex.Errorf(refdex.EMODEL, "%s: %v", op, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", refdex.Errorf(refdex.EMODEL, "%s: empty response", op)
	}
	return out, nil
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", refdex.Errorf(refdex.EINVALID, "render %s prompt: %v", tmpl.Name(), err)
	}
	return sb.String(), nil
}

// truncate returns the first limit runes of s.
func truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
