package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/refdex/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const refHost = "ref.example.com"

// waitFor measures one Wait call.
func waitFor(t *testing.T, l *crawl.DomainLimiter, host string) time.Duration {
	t.Helper()
	begin := time.Now()
	require.NoError(t, l.Wait(context.Background(), host))
	return time.Since(begin)
}

func TestDomainLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("first request to a host passes immediately", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(2)

		assert.Less(t, waitFor(t, l, refHost), 50*time.Millisecond)
	})

	t.Run("spaces out requests to the same host", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(10)
		waitFor(t, l, refHost)

		assert.GreaterOrEqual(t, waitFor(t, l, refHost), 80*time.Millisecond)
	})

	t.Run("host names are case-insensitive", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(10)
		waitFor(t, l, "Ref.Example.com")

		assert.GreaterOrEqual(t, waitFor(t, l, refHost), 80*time.Millisecond)
		assert.Equal(t, 1, l.Hosts())
	})

	t.Run("hosts are limited independently", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(10)
		waitFor(t, l, refHost)

		assert.Less(t, waitFor(t, l, "cdn.example.com"), 50*time.Millisecond)
		assert.Equal(t, 2, l.Hosts())
	})

	t.Run("burst lets the first requests through", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(1, crawl.WithBurst(3))

		for range 3 {
			assert.Less(t, waitFor(t, l, refHost), 50*time.Millisecond)
		}
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		t.Parallel()

		for _, rps := range []float64{0, -1} {
			l := crawl.NewDomainLimiter(rps)
			begin := time.Now()
			for range 20 {
				require.NoError(t, l.Wait(context.Background(), refHost))
			}
			assert.Less(t, time.Since(begin), 50*time.Millisecond)
		}
	})

	t.Run("returns when the context expires", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(1)
		waitFor(t, l, refHost)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.Error(t, l.Wait(ctx, refHost))
	})

	t.Run("concurrent callers all get through", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewDomainLimiter(100)

		var g errgroup.Group
		for range 5 {
			g.Go(func() error {
				return l.Wait(context.Background(), refHost)
			})
		}

		assert.NoError(t, g.Wait())
	})
}
