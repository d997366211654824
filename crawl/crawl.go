// Package crawl builds the reference tree. It walks category pages from the
// index, derives leaf descriptions and keywords with a language model, and
// aggregates keywords bottom-up into every category.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/bloom"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Crawl defaults.
const (
	DefaultConcurrency = 4
	DefaultMaxDepth    = 8
)

// Crawler orchestrates a crawl pass over a reference site.
type Crawler struct {
	Nodes     refdex.NodeService
	Runs      refdex.RunService // optional
	Fetcher   refdex.Fetcher
	Parser    refdex.PageParser
	Extractor refdex.ContentExtractor // optional fallback when the content region is missing
	Converter refdex.Converter

	Summarizer   refdex.Summarizer
	TokenCounter refdex.TokenCounter  // optional
	RateLimiter  refdex.DomainLimiter // optional

	// StopList filters refined keywords. Nil selects refdex.DefaultStopWords.
	StopList refdex.StopList

	// Concurrency bounds concurrent fetch and model calls, not goroutines.
	Concurrency int
	MaxDepth    int

	RetryDelays      []time.Duration
	StoreRetryDelays []time.Duration

	Logger *slog.Logger
}

// Result holds the outcome of a crawl pass.
type Result struct {
	RunID string
	Roots int
	refdex.RunStats
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressVisited
	ProgressDerived
	ProgressSkipped
	ProgressWrite
	ProgressUnresolved
	ProgressModelFailed
	ProgressFinished
)

// ProgressEvent reports progress during a crawl pass. Visited and Writes
// are the counters of the current pass at the time of the event.
type ProgressEvent struct {
	Type    ProgressType
	URL     string
	Depth   int
	Roots   int
	Visited int
	Writes  int
	Error   error
}

// ProgressFunc is a callback for reporting crawl progress.
// Calls are serialized.
type ProgressFunc func(event ProgressEvent)

// Crawl runs one pass from the index page. A failing subtree never aborts
// its siblings; only a failure to read the index is returned as an error.
func (c *Crawler) Crawl(ctx context.Context, indexURL string, progress ProgressFunc) (*Result, error) {
	p := c.newPass(progress)

	var run *refdex.Run
	if c.Runs != nil {
		run = &refdex.Run{IndexURL: indexURL}
		if err := c.Runs.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	html, err := p.fetch(ctx, indexURL)
	if err != nil {
		p.finishRun(ctx, run)
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	links, err := c.Parser.IndexLinks(html, indexURL)
	if err != nil {
		p.finishRun(ctx, run)
		return nil, fmt.Errorf("parse index: %w", err)
	}

	p.record(ProgressEvent{Type: ProgressStarted, URL: indexURL, Roots: len(links)}, nil)

	// Top-level nodes are created in index order before any is processed.
	var roots []*refdex.Node
	for _, u := range links {
		node, err := p.createNode(ctx, &refdex.Node{
			URL:      u,
			Type:     refdex.NodeCategory,
			Depth:    1,
			ParentID: refdex.RootParentID,
		})
		if err != nil {
			p.unresolved(&refdex.Node{URL: u, Depth: 1}, err)
			continue
		}
		roots = append(roots, node)
	}

	var g errgroup.Group
	for _, node := range roots {
		g.Go(func() error {
			p.processCategory(ctx, node)
			return nil
		})
	}
	_ = g.Wait()

	stats := p.finishRun(ctx, run)
	p.record(ProgressEvent{Type: ProgressFinished, URL: indexURL, Roots: len(links)}, nil)

	result := &Result{Roots: len(links), RunStats: stats}
	if run != nil {
		result.RunID = run.ID
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// pass holds the state of a single crawl pass.
type pass struct {
	c        *Crawler
	logger   *slog.Logger
	sem      *semaphore.Weighted
	visited  *bloom.Filter
	stop     refdex.StopList
	maxDepth int

	fetchDelays []time.Duration
	storeDelays []time.Duration

	mu       sync.Mutex
	stats    refdex.RunStats
	progress ProgressFunc
}

// outcome is what a processed node reports to its parent.
type outcome struct {
	keywords []string

	// changed is set when the node's keywords were rewritten in this pass.
	changed bool

	// complete is false when the node or any descendant could not be
	// resolved or derived.
	complete bool
}

func (c *Crawler) newPass(progress ProgressFunc) *pass {
	p := &pass{
		c:           c,
		logger:      c.Logger,
		visited:     bloom.NewVisitedSet(),
		stop:        c.StopList,
		maxDepth:    c.MaxDepth,
		fetchDelays: c.RetryDelays,
		storeDelays: c.StoreRetryDelays,
		progress:    progress,
	}
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	p.sem = semaphore.NewWeighted(int64(concurrency))
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.stop == nil {
		p.stop = refdex.NewStopList(refdex.DefaultStopWords...)
	}
	if p.maxDepth <= 0 {
		p.maxDepth = DefaultMaxDepth
	}
	if p.fetchDelays == nil {
		p.fetchDelays = DefaultRetryDelays()
	}
	if p.storeDelays == nil {
		p.storeDelays = DefaultStoreRetryDelays()
	}
	return p
}

// processCategory fetches a category page, processes its children
// concurrently and aggregates their keywords once all of them finished.
func (p *pass) processCategory(ctx context.Context, node *refdex.Node) outcome {
	if !p.visit(node) {
		return outcome{keywords: node.Keywords, complete: true}
	}

	html, page, err := p.load(ctx, node)
	if err != nil {
		p.unresolved(node, err)
		return outcome{keywords: node.Keywords}
	}

	children, created := p.createChildren(ctx, node, page)

	outcomes := make([]outcome, len(children))
	var g errgroup.Group
	for i, child := range children {
		g.Go(func() error {
			if child.Type == refdex.NodeCategory {
				outcomes[i] = p.processCategory(ctx, child)
			} else {
				outcomes[i] = p.processLeaf(ctx, child)
			}
			return nil
		})
	}
	_ = g.Wait()

	return p.aggregate(ctx, node, html, page, children, outcomes, created)
}

// processLeaf derives the description and keywords of a class or function
// page unless its content is unchanged since the last derivation.
func (p *pass) processLeaf(ctx context.Context, node *refdex.Node) outcome {
	if !p.visit(node) {
		return outcome{keywords: node.Keywords, complete: true}
	}

	html, page, err := p.load(ctx, node)
	if err != nil {
		p.unresolved(node, err)
		return outcome{keywords: node.Keywords}
	}

	text, err := p.pageText(html, page)
	if err == nil && text == "" {
		err = refdex.Errorf(refdex.EINVALID, "page has no content")
	}
	if err != nil {
		p.unresolved(node, err)
		return outcome{keywords: node.Keywords}
	}

	fp := Fingerprint(text)
	if node.Derived() && node.Checksum == fp {
		p.logger.Debug("unchanged", "url", node.URL)
		p.record(ProgressEvent{Type: ProgressSkipped, URL: node.URL, Depth: node.Depth}, func(s *refdex.RunStats) {
			s.Skipped++
		})
		return outcome{keywords: node.Keywords, complete: true}
	}

	desc, keywords, err := p.summarize(ctx, text)
	if err != nil {
		p.modelFailed(node, err)
		return outcome{keywords: node.Keywords}
	}
	if keywords == nil {
		keywords = []string{}
	}

	err = p.write(ctx, node, refdex.NodeUpdate{
		Description: &desc,
		Keywords:    keywords,
		Checksum:    &fp,
	})
	if err != nil {
		return outcome{keywords: node.Keywords}
	}
	p.derived(node)

	return outcome{
		keywords: keywords,
		changed:  !refdex.EqualKeywords(keywords, node.Keywords),
		complete: true,
	}
}

// aggregate derives the category's own description and the union of its
// children's keywords, and writes whatever changed in one update.
//
// Only children with keywords are listed and merged. A child that failed and
// was never derived is left out until a later pass derives it; its failure
// withholds the category checksum but not the category keywords.
func (p *pass) aggregate(ctx context.Context, node *refdex.Node, html string, page *refdex.ParsedPage, children []*refdex.Node, outcomes []outcome, created bool) outcome {
	complete := created
	childChanged := false
	ids := make([]int64, 0, len(children))
	sets := make([][]string, 0, len(children))
	for i, o := range outcomes {
		if !o.complete {
			complete = false
		}
		if o.changed {
			childChanged = true
		}
		if len(o.keywords) == 0 {
			continue
		}
		ids = append(ids, children[i].ID)
		sets = append(sets, o.keywords)
	}

	text, err := p.pageText(html, page)
	if err != nil {
		p.logger.Warn("category text unavailable", "url", node.URL, "err", err)
		text = ""
	}
	fp := Fingerprint(text)
	pageChanged := node.Checksum != fp

	var upd refdex.NodeUpdate

	if text != "" && (node.Description == "" || pageChanged) {
		desc, err := p.describe(ctx, text)
		if err != nil {
			p.modelFailed(node, err)
			complete = false
		} else if desc != node.Description {
			upd.Description = &desc
		}
	}

	idsChanged := !refdex.EqualIDs(ids, node.ChildIDs)
	if idsChanged {
		upd.ChildIDs = ids
	}

	keywords := node.Keywords
	changed := false
	if len(node.Keywords) == 0 || pageChanged || childChanged || idsChanged {
		union := refdex.UnionKeywords(sets...)
		if !refdex.EqualKeywords(union, node.Keywords) {
			if union == nil {
				union = []string{}
			}
			upd.Keywords = union
			keywords = union
			changed = true
		}
	}

	if complete && pageChanged {
		upd.Checksum = &fp
	}

	if upd.Empty() {
		if complete {
			p.record(ProgressEvent{Type: ProgressSkipped, URL: node.URL, Depth: node.Depth}, func(s *refdex.RunStats) {
				s.Skipped++
			})
		}
		return outcome{keywords: keywords, complete: complete}
	}

	if err := p.write(ctx, node, upd); err != nil {
		return outcome{keywords: node.Keywords}
	}
	if upd.Description != nil || upd.Keywords != nil {
		p.derived(node)
	}

	return outcome{keywords: keywords, changed: changed, complete: complete}
}

// createChildren creates the child nodes of a category in document order.
// Sub-categories take precedence; without them the class listing followed by
// the function listing become leaves. The bool result is false when a
// child could not be stored or the depth limit cut the subtree off.
func (p *pass) createChildren(ctx context.Context, parent *refdex.Node, page *refdex.ParsedPage) ([]*refdex.Node, bool) {
	type link struct {
		url string
		typ refdex.NodeType
	}

	var links []link
	if len(page.CategoryLinks) > 0 {
		if parent.Depth >= p.maxDepth {
			p.logger.Warn("max depth reached", "url", parent.URL, "depth", parent.Depth)
			return nil, false
		}
		for _, u := range page.CategoryLinks {
			links = append(links, link{u, refdex.NodeCategory})
		}
	} else {
		for _, u := range page.ClassLinks {
			links = append(links, link{u, refdex.NodeClass})
		}
		for _, u := range page.FunctionLinks {
			links = append(links, link{u, refdex.NodeFunction})
		}
	}

	complete := true
	seen := make(map[int64]struct{}, len(links))
	var children []*refdex.Node
	for _, l := range links {
		child, err := p.createNode(ctx, &refdex.Node{
			URL:      l.url,
			Type:     l.typ,
			Depth:    parent.Depth + 1,
			ParentID: parent.ID,
		})
		if err != nil {
			p.logger.Error("create node", "url", l.url, "err", err)
			complete = false
			continue
		}
		if child.ID == parent.ID {
			continue
		}
		if _, ok := seen[child.ID]; ok {
			continue
		}
		seen[child.ID] = struct{}{}
		children = append(children, child)
	}
	return children, complete
}

func (p *pass) createNode(ctx context.Context, node *refdex.Node) (*refdex.Node, error) {
	var stored *refdex.Node
	err := RetryConflict(ctx, p.storeDelays, func(ctx context.Context) error {
		var err error
		stored, err = p.c.Nodes.FindOrCreateNode(ctx, node)
		return err
	})
	return stored, err
}

// load fetches and parses the page of node.
func (p *pass) load(ctx context.Context, node *refdex.Node) (string, *refdex.ParsedPage, error) {
	html, err := p.fetch(ctx, node.URL)
	if err != nil {
		return "", nil, err
	}
	page, err := p.c.Parser.ParsePage(html, node.URL)
	if err != nil {
		return "", nil, err
	}
	return html, page, nil
}

// fetch retrieves a page while holding a concurrency slot.
func (p *pass) fetch(ctx context.Context, url string) (string, error) {
	return FetchWithRetry(ctx, url, func(ctx context.Context, url string) (string, error) {
		if p.c.RateLimiter != nil {
			if err := p.c.RateLimiter.Wait(ctx, hostOf(url)); err != nil {
				return "", err
			}
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer p.sem.Release(1)
		return p.c.Fetcher.Fetch(ctx, url)
	}, p.logger, p.fetchDelays)
}

// pageText returns the Markdown text of the page's content region, falling
// back to the content extractor when the region is missing.
func (p *pass) pageText(html string, page *refdex.ParsedPage) (string, error) {
	contentHTML := page.ContentHTML
	if contentHTML == "" && p.c.Extractor != nil {
		extracted, err := p.c.Extractor.Extract(html)
		if err != nil {
			return "", err
		}
		contentHTML = extracted.ContentHTML
	}
	if strings.TrimSpace(contentHTML) == "" {
		return "", nil
	}
	return p.c.Converter.Convert(contentHTML)
}

// summarize derives the description and refined keywords of text.
func (p *pass) summarize(ctx context.Context, text string) (string, []string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", nil, err
	}
	defer p.sem.Release(1)

	p.countTokens(ctx, text)

	desc, err := p.c.Summarizer.Describe(ctx, text)
	if err != nil {
		return "", nil, err
	}
	raw, err := p.c.Summarizer.ExtractKeywords(ctx, text, 0)
	if err != nil {
		return "", nil, err
	}
	return desc, refdex.RefineKeywords(raw, p.stop), nil
}

func (p *pass) describe(ctx context.Context, text string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	p.countTokens(ctx, text)
	return p.c.Summarizer.Describe(ctx, text)
}

func (p *pass) countTokens(ctx context.Context, text string) {
	if p.c.TokenCounter == nil {
		return
	}
	n, err := p.c.TokenCounter.CountTokens(ctx, text)
	if err != nil {
		return
	}
	p.record(ProgressEvent{}, func(s *refdex.RunStats) {
		s.Tokens += n
	})
}

// write applies upd, retrying store contention. A write that still fails
// marks the node unresolved.
func (p *pass) write(ctx context.Context, node *refdex.Node, upd refdex.NodeUpdate) error {
	err := RetryConflict(ctx, p.storeDelays, func(ctx context.Context) error {
		_, err := p.c.Nodes.UpdateNode(ctx, node.ID, upd)
		return err
	})
	if err != nil {
		p.unresolved(node, fmt.Errorf("write node: %w", err))
		return err
	}
	p.record(ProgressEvent{Type: ProgressWrite, URL: node.URL, Depth: node.Depth}, func(s *refdex.RunStats) {
		s.Writes++
	})
	return nil
}

// visit reports whether node is seen for the first time in this pass.
func (p *pass) visit(node *refdex.Node) bool {
	if !p.visited.Visit(node.URL) {
		p.logger.Debug("already visited", "url", node.URL)
		return false
	}
	p.record(ProgressEvent{Type: ProgressVisited, URL: node.URL, Depth: node.Depth}, func(s *refdex.RunStats) {
		s.Visited++
	})
	return true
}

func (p *pass) derived(node *refdex.Node) {
	p.logger.Debug("derived", "url", node.URL, "depth", node.Depth)
	p.record(ProgressEvent{Type: ProgressDerived, URL: node.URL, Depth: node.Depth}, func(s *refdex.RunStats) {
		s.Derived++
	})
}

func (p *pass) unresolved(node *refdex.Node, err error) {
	p.logger.Warn("unresolved", "url", node.URL, "depth", node.Depth, "err", err)
	p.record(ProgressEvent{Type: ProgressUnresolved, URL: node.URL, Depth: node.Depth, Error: err}, func(s *refdex.RunStats) {
		s.Unresolved++
	})
}

func (p *pass) modelFailed(node *refdex.Node, err error) {
	p.logger.Warn("model failed", "url", node.URL, "depth", node.Depth, "err", err)
	p.record(ProgressEvent{Type: ProgressModelFailed, URL: node.URL, Depth: node.Depth, Error: err}, func(s *refdex.RunStats) {
		s.ModelFailures++
	})
}

// record applies update to the pass counters and reports e. A zero event
// is not reported.
func (p *pass) record(e ProgressEvent, update func(s *refdex.RunStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if update != nil {
		update(&p.stats)
	}
	if p.progress == nil || e == (ProgressEvent{}) {
		return
	}
	e.Visited = p.stats.Visited
	e.Writes = p.stats.Writes
	p.progress(e)
}

// finishRun records the pass counters and returns them.
func (p *pass) finishRun(ctx context.Context, run *refdex.Run) refdex.RunStats {
	p.mu.Lock()
	stats := p.stats
	p.mu.Unlock()

	if run == nil {
		return stats
	}
	if err := p.c.Runs.FinishRun(context.WithoutCancel(ctx), run.ID, stats); err != nil {
		p.logger.Error("finish run", "run", run.ID, "err", err)
	}
	return stats
}
