package mock

import "github.com/fwojciec/refdex"

var _ refdex.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of refdex.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html string) (*refdex.ExtractResult, error)
}

func (e *ContentExtractor) Extract(html string) (*refdex.ExtractResult, error) {
	return e.ExtractFn(html)
}
