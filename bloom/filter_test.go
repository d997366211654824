package bloom_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/refdex/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_Visit(t *testing.T) {
	t.Parallel()

	t.Run("reports first visit only once", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.01)

		assert.True(t, f.Visit("https://ref.example.com/core/index.html"))
		assert.False(t, f.Visit("https://ref.example.com/core/index.html"))
		assert.True(t, f.Visit("https://ref.example.com/community/index.html"))
	})

	t.Run("concurrent visitors see exactly one first visit", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewVisitedSet()

		var first atomic.Int32
		var wg sync.WaitGroup
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.Visit("https://ref.example.com/core/shared.html") {
					first.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), first.Load())
	})

	t.Run("unseen pages are rarely reported as visited", func(t *testing.T) {
		t.Parallel()

		const pages = 10_000
		// Probing visits too, so the filter is sized for both halves.
		f := bloom.NewFilter(2*pages, 0.01)
		for i := range pages {
			f.Visit(fmt.Sprintf("https://ref.example.com/core/%d.html", i))
		}

		skipped := 0
		for i := range pages {
			if !f.Visit(fmt.Sprintf("https://ref.example.com/community/%d.html", i)) {
				skipped++
			}
		}

		// Twice the configured rate leaves room for variance.
		assert.Less(t, float64(skipped)/pages, 0.02)
	})
}
