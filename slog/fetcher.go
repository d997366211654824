// Package slog provides logging decorators for refdex services.
package slog

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/refdex"
)

var _ refdex.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher logs every page fetch. Successful fetches log at debug
// level, failures at warn.
type LoggingFetcher struct {
	next   refdex.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher wraps next. A nil logger discards logs.
func NewLoggingFetcher(next refdex.Fetcher, logger *slog.Logger) *LoggingFetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LoggingFetcher{next: next, logger: logger.With("component", "fetcher")}
}

func (f *LoggingFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	begin := time.Now()
	html, err := f.next.Fetch(ctx, pageURL)

	attrs := []any{
		"url", pageURL,
		"host", pageHost(pageURL),
		"duration", time.Since(begin),
	}
	if err != nil {
		f.logger.WarnContext(ctx, "fetch failed", append(attrs, "code", refdex.ErrorCode(err), "err", err)...)
		return "", err
	}
	f.logger.DebugContext(ctx, "fetched", append(attrs, "bytes", len(html))...)
	return html, nil
}

func (f *LoggingFetcher) Close() error {
	err := f.next.Close()
	f.logger.Debug("fetcher closed", "err", err)
	return err
}

func pageHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
