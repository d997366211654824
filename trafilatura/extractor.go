// Package trafilatura finds the main content of reference pages that lack
// the expected content region.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/refdex"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ refdex.ContentExtractor = (*Extractor)(nil)

// Extractor implements refdex.ContentExtractor with go-trafilatura.
type Extractor struct {
	opts trafilatura.Options
}

// Option configures an Extractor.
type Option func(*trafilatura.Options)

// WithoutTables drops tables from the content. Member tables are kept by
// default because API pages list signatures in them.
func WithoutTables() Option {
	return func(o *trafilatura.Options) { o.ExcludeTables = true }
}

// NewExtractor creates an Extractor that ignores comment sections and keeps
// links.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{opts: trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		IncludeLinks:    true,
		Deduplicate:     true,
	}}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

// Extract returns the main content of rawHTML. A page where nothing
// qualifies as content yields an empty ContentHTML, not an error. When the
// page has no title metadata, the first h1 of the content is used.
func (e *Extractor) Extract(rawHTML string) (*refdex.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, refdex.Errorf(refdex.EINVALID, "empty HTML input")
	}

	res, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, refdex.Errorf(refdex.EINVALID, "extract content: %v", err)
	}

	out := &refdex.ExtractResult{Title: strings.TrimSpace(res.Metadata.Title)}
	if res.ContentNode == nil {
		return out, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, res.ContentNode); err != nil {
		return nil, err
	}
	out.ContentHTML = buf.String()
	if out.Title == "" {
		out.Title = firstHeading(res.ContentNode)
	}
	return out, nil
}

func firstHeading(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
		return strings.TrimSpace(textOf(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := firstHeading(c); h != "" {
			return h
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}
