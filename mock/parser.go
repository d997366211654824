package mock

import "github.com/fwojciec/refdex"

var _ refdex.PageParser = (*PageParser)(nil)

// PageParser is a mock implementation of refdex.PageParser.
type PageParser struct {
	IndexLinksFn func(html, pageURL string) ([]string, error)
	ParsePageFn  func(html, pageURL string) (*refdex.ParsedPage, error)
}

func (p *PageParser) IndexLinks(html, pageURL string) ([]string, error) {
	return p.IndexLinksFn(html, pageURL)
}

func (p *PageParser) ParsePage(html, pageURL string) (*refdex.ParsedPage, error) {
	return p.ParsePageFn(html, pageURL)
}
