package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/crawl"
	"github.com/schollz/progressbar/v3"
)

// barURLWidth is the width of the page path shown next to the spinner.
const barURLWidth = 48

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	indexURL := c.IndexURL
	if indexURL == "" && deps.Config != nil {
		indexURL = deps.Config.IndexURL
	}
	if indexURL == "" {
		fmt.Fprintln(deps.Stderr, "error: index URL required")
		return refdex.Errorf(refdex.EINVALID, "index URL required")
	}

	if c.Concurrency > 0 {
		deps.Crawler.Concurrency = c.Concurrency
	}

	before, err := deps.Nodes.CountIncomplete(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Crawling %s (%d pages without description)\n", indexURL, before)

	logger := deps.logger()
	bar := newProgressBar(deps.Stderr, c.NoProgress)
	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			bar.Describe(fmt.Sprintf("crawling %d categories", event.Roots))
		case crawl.ProgressVisited:
			bar.Describe(shortURL(event.URL, barURLWidth))
			_ = bar.Add(1)
		case crawl.ProgressUnresolved:
			logger.Warn("page unresolved", "url", event.URL, "err", event.Error)
		case crawl.ProgressModelFailed:
			logger.Warn("model failed", "url", event.URL, "err", event.Error)
		}
	}

	result, err := deps.Crawler.Crawl(deps.Ctx, indexURL, progress)
	_ = bar.Finish()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error crawling: %s\n", refdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "  Visited %d pages: %d derived, %d skipped, %d unresolved, %d model failures\n",
		result.Visited, result.Derived, result.Skipped, result.Unresolved, result.ModelFailures)
	fmt.Fprintf(deps.Stdout, "  Wrote %d updates (%s tokens)\n", result.Writes, formatTokens(result.Tokens))

	after, err := deps.Nodes.CountIncomplete(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "  Pages without description: %d (was %d)\n", after, before)
	return nil
}

func newProgressBar(w io.Writer, disabled bool) *progressbar.ProgressBar {
	if disabled {
		return progressbar.DefaultSilent(-1)
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// formatTokens formats a token count with a k or M suffix.
func formatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// shortURL returns the path of rawURL cut from the left to at most width
// runes, so the page name stays visible.
func shortURL(rawURL string, width int) string {
	if width <= 0 {
		return ""
	}
	s := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		s = strings.TrimPrefix(u.Path, "/")
	}
	r := []rune(s)
	switch {
	case len(r) <= width:
		return s
	case width <= 3:
		return string(r[len(r)-width:])
	}
	return "..." + string(r[len(r)-width+3:])
}
