package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/refdex"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// DefaultStoreRetryDelays returns the delays for retrying writes that hit
// store contention. SQLite already waits busy_timeout on every attempt.
func DefaultStoreRetryDelays() []time.Duration {
	return []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}
}

// FetchWithRetry fetches url, retrying once per delay while the fetch fails.
// Invalid requests are not retried.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger *slog.Logger, delays []time.Duration) (string, error) {
	var html string
	err := retry(ctx, delays, func(ctx context.Context) error {
		var err error
		html, err = fetch(ctx, url)
		return err
	}, func(err error) bool {
		return refdex.ErrorCode(err) != refdex.EINVALID
	}, func(attempt int, err error) {
		if logger != nil {
			logger.Debug("retry fetch", "url", url, "attempt", attempt, "err", err)
		}
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// RetryConflict runs fn, retrying with the given delays while it fails with
// ECONFLICT.
func RetryConflict(ctx context.Context, delays []time.Duration, fn func(ctx context.Context) error) error {
	return retry(ctx, delays, fn, func(err error) bool {
		return refdex.ErrorCode(err) == refdex.ECONFLICT
	}, nil)
}

// retry runs fn once plus once per delay while shouldRetry accepts the error.
func retry(ctx context.Context, delays []time.Duration, fn func(ctx context.Context) error, shouldRetry func(error) bool, onRetry func(attempt int, err error)) error {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 || !shouldRetry(err) {
			break
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if onRetry != nil {
			onRetry(attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return lastErr
}
