package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/refdex"
)

// Ensure LoggingResolver implements refdex.Resolver.
var _ refdex.Resolver = (*LoggingResolver)(nil)

// LoggingResolver wraps a Resolver with logging of each question.
type LoggingResolver struct {
	next   refdex.Resolver
	logger *slog.Logger
}

// NewLoggingResolver creates a new LoggingResolver.
func NewLoggingResolver(next refdex.Resolver, logger *slog.Logger) *LoggingResolver {
	return &LoggingResolver{next: next, logger: logger}
}

// Resolve delegates to the wrapped resolver and logs the outcome.
func (r *LoggingResolver) Resolve(ctx context.Context, question string) (res *refdex.Resolution, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"question", question,
			"duration", time.Since(begin),
		}
		if res != nil {
			attrs = append(attrs, "status", res.Status, "keywords", len(res.Keywords), "urls", len(res.URLs))
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		r.logger.Info("resolve", attrs...)
	}(time.Now())
	return r.next.Resolve(ctx, question)
}
