// Package bloom provides the per-pass visited-URL set of the crawler using
// a Bloom filter.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// DefaultCapacity is sized for a large API reference (tens of thousands of pages).
const DefaultCapacity = 200_000

// DefaultFalsePositiveRate keeps the chance of wrongly skipping a page
// negligible at DefaultCapacity.
const DefaultFalsePositiveRate = 1e-6

// Filter is a concurrency-safe set of visited URLs.
// False positives are possible; false negatives are not.
type Filter struct {
	mu sync.Mutex
	f  *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected items
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// NewVisitedSet creates a filter with the default sizing.
func NewVisitedSet() *Filter {
	return NewFilter(DefaultCapacity, DefaultFalsePositiveRate)
}

// Visit marks url as visited and reports whether this is the first visit.
func (f *Filter) Visit(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.f.TestAndAddString(url)
}
