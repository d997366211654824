// Package readability is the go-readability alternative to the trafilatura
// content extractor.
package readability

import (
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/refdex"
	"github.com/go-shiori/go-readability"
)

// DefaultMinText is the shortest article, in runes, worth summarizing.
const DefaultMinText = 80

var _ refdex.ContentExtractor = (*Extractor)(nil)

// Extractor implements refdex.ContentExtractor with go-readability.
type Extractor struct {
	minText int
}

// NewExtractor creates an Extractor. Articles whose visible text is shorter
// than minText runes are reported as having no content; zero keeps all.
func NewExtractor(minText int) *Extractor {
	return &Extractor{minText: minText}
}

// Extract returns the article of rawHTML.
func (e *Extractor) Extract(rawHTML string) (*refdex.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, refdex.Errorf(refdex.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, refdex.Errorf(refdex.EINVALID, "extract content: %v", err)
	}

	res := &refdex.ExtractResult{Title: strings.TrimSpace(article.Title)}
	if utf8.RuneCountInString(strings.TrimSpace(article.TextContent)) >= e.minText {
		res.ContentHTML = article.Content
	}
	return res, nil
}
