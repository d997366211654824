package slog

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/refdex"
)

// Ensure LoggingCompleter implements refdex.Completer.
var _ refdex.Completer = (*LoggingCompleter)(nil)

// LoggingCompleter wraps a Completer with logging of prompt and response sizes.
type LoggingCompleter struct {
	next   refdex.Completer
	logger *slog.Logger
}

// NewLoggingCompleter creates a new LoggingCompleter.
func NewLoggingCompleter(next refdex.Completer, logger *slog.Logger) *LoggingCompleter {
	return &LoggingCompleter{next: next, logger: logger}
}

// Complete delegates to the wrapped completer and logs the operation.
func (c *LoggingCompleter) Complete(ctx context.Context, prompt string) (out string, err error) {
	defer func(begin time.Time) {
		c.logger.Info("complete",
			"prompt_runes", utf8.RuneCountInString(prompt),
			"response_runes", utf8.RuneCountInString(out),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Complete(ctx, prompt)
}
