// Package http fetches reference pages with a plain HTTP client. It serves
// sites whose pages render without JavaScript.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/refdex"
)

const (
	// DefaultFetchTimeout matches rod.DefaultFetchTimeout.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultUserAgent identifies the indexer to the reference site.
	DefaultUserAgent = "refdex/1.0 (+https://github.com/fwojciec/refdex)"

	// DefaultMaxBodySize is the largest page accepted, in bytes.
	DefaultMaxBodySize = 16 << 20
)

var _ refdex.Fetcher = (*Fetcher)(nil)

// Fetcher implements refdex.Fetcher with net/http.
type Fetcher struct {
	client  *http.Client
	header  http.Header
	maxBody int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds a whole request, body included.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithUserAgent replaces DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.header.Set("User-Agent", ua) }
}

// WithMaxBodySize replaces DefaultMaxBodySize. Larger pages fail with EFETCH
// rather than being cut short, since a partial page would be summarized and
// checksummed as if it were whole.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: DefaultFetchTimeout},
		header: http.Header{
			"User-Agent": {DefaultUserAgent},
			"Accept":     {"text/html,application/xhtml+xml"},
		},
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of the page at url. A malformed url returns
// EINVALID; transport failures, non-2xx statuses and oversized pages return
// EFETCH.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", refdex.Errorf(refdex.EINVALID, "bad page url %q: %v", url, err)
	}
	req.Header = f.header.Clone()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", refdex.Errorf(refdex.EFETCH, "get %s: %v", url, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", refdex.Errorf(refdex.EFETCH, "get %s: %v", url, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", refdex.Errorf(refdex.EFETCH, "read %s: %v", url, err)
	}
	if int64(len(body)) > f.maxBody {
		return "", refdex.Errorf(refdex.EFETCH, "%s is larger than %d bytes", url, f.maxBody)
	}
	return string(body), nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// Close is a no-op.
func (f *Fetcher) Close() error { return nil }
