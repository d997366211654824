package mock

import (
	"context"

	"github.com/fwojciec/refdex"
)

var (
	_ refdex.Matcher  = (*Matcher)(nil)
	_ refdex.Resolver = (*Resolver)(nil)
)

// Matcher is a mock implementation of refdex.Matcher.
type Matcher struct {
	ScoreFn func(a, b string) int
}

func (m *Matcher) Score(a, b string) int {
	return m.ScoreFn(a, b)
}

// Resolver is a mock implementation of refdex.Resolver.
type Resolver struct {
	ResolveFn func(ctx context.Context, question string) (*refdex.Resolution, error)
}

func (r *Resolver) Resolve(ctx context.Context, question string) (*refdex.Resolution, error) {
	return r.ResolveFn(ctx, question)
}
