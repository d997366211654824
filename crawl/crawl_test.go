package crawl_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/crawl"
	"github.com/fwojciec/refdex/mock"
	"github.com/fwojciec/refdex/search"
	"github.com/fwojciec/refdex/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	indexURL = "https://ref.example.com/index.html"
	catA     = "https://ref.example.com/a.html"
	catB     = "https://ref.example.com/b.html"
	catBSub  = "https://ref.example.com/b/sub.html"
	classX   = "https://ref.example.com/a/X.html"
	classY   = "https://ref.example.com/a/Y.html"
	funcF    = "https://ref.example.com/a/f.html"
	classZ   = "https://ref.example.com/b/sub/Z.html"
	classW   = "https://ref.example.com/b/sub/W.html"
)

// site is an in-memory reference site. Page HTML is the page URL; the
// parsed content region doubles as the converted text.
type site struct {
	mu         sync.Mutex
	index      []string
	pages      map[string]*refdex.ParsedPage
	keywords   map[string]string
	failFetch  map[string]bool
	failModel  map[string]bool
	modelCalls int
}

func newSite() *site {
	return &site{
		index: []string{catA, catB},
		pages: map[string]*refdex.ParsedPage{
			catA: {
				ContentHTML:   "Module a",
				ClassLinks:    []string{classX, classY},
				FunctionLinks: []string{funcF},
			},
			catB: {
				ContentHTML:   "Module b",
				CategoryLinks: []string{catBSub},
			},
			catBSub: {
				ContentHTML: "Module b.sub",
				ClassLinks:  []string{classZ},
			},
			classX: {ContentHTML: "Class X"},
			classY: {ContentHTML: "Class Y"},
			funcF:  {ContentHTML: "Function f"},
			classZ: {ContentHTML: "Class Z"},
		},
		keywords: map[string]string{
			"Class X":    "XReader, load",
			"Class Y":    "YWriter, 'load', class",
			"Function f": "f_helper",
			"Class Z":    "ZClient",
		},
		failFetch: map[string]bool{},
		failModel: map[string]bool{},
	}
}

func (s *site) setFetchFailure(url string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFetch[url] = fail
}

func (s *site) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelCalls
}

func (s *site) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelCalls = 0
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.failFetch[url] {
				return "", refdex.Errorf(refdex.EFETCH, "HTTP 503 for %s", url)
			}
			return url, nil
		},
	}
}

func (s *site) parser() *mock.PageParser {
	return &mock.PageParser{
		IndexLinksFn: func(_, _ string) ([]string, error) {
			return s.index, nil
		},
		ParsePageFn: func(_, pageURL string) (*refdex.ParsedPage, error) {
			page, ok := s.pages[pageURL]
			if !ok {
				return nil, refdex.Errorf(refdex.ENOTFOUND, "no page %s", pageURL)
			}
			cp := *page
			return &cp, nil
		},
	}
}

func (s *site) summarizer() *mock.Summarizer {
	return &mock.Summarizer{
		DescribeFn: func(_ context.Context, text string) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.modelCalls++
			return "About " + text, nil
		},
		ExtractKeywordsFn: func(_ context.Context, text string, minCount int) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.modelCalls++
			if minCount != 0 {
				return "", refdex.Errorf(refdex.EINVALID, "unexpected question mode")
			}
			if s.failModel[text] {
				return "", refdex.Errorf(refdex.EMODEL, "model unavailable")
			}
			return s.keywords[text], nil
		},
	}
}

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, db.Open())
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func newCrawler(db *sqlite.DB, s *site) *crawl.Crawler {
	return &crawl.Crawler{
		Nodes:       sqlite.NewNodeService(db),
		Runs:        sqlite.NewRunService(db),
		Fetcher:     s.fetcher(),
		Parser:      s.parser(),
		Converter:   &mock.Converter{ConvertFn: func(html string) (string, error) { return html, nil }},
		Summarizer:  s.summarizer(),
		Concurrency: 4,
		RetryDelays: []time.Duration{},
	}
}

func findNode(t *testing.T, db *sqlite.DB, url string) *refdex.Node {
	t.Helper()

	node, err := sqlite.NewNodeService(db).FindNodeByURL(context.Background(), url)
	require.NoError(t, err)
	return node
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("builds the tree and aggregates keywords bottom-up", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Roots)
		assert.Equal(t, 7, result.Visited)
		assert.Equal(t, 7, result.Writes)
		assert.Equal(t, 0, result.Unresolved)
		assert.Equal(t, 0, result.ModelFailures)
		assert.NotEmpty(t, result.RunID)

		x := findNode(t, db, classX)
		assert.Equal(t, refdex.NodeClass, x.Type)
		assert.Equal(t, 2, x.Depth)
		assert.Equal(t, "About Class X", x.Description)
		assert.Equal(t, []string{"XReader", "load"}, x.Keywords)
		assert.Equal(t, crawl.Fingerprint("Class X"), x.Checksum)

		// Quotes and stop words are removed during refinement.
		y := findNode(t, db, classY)
		assert.Equal(t, []string{"YWriter", "load"}, y.Keywords)

		f := findNode(t, db, funcF)
		assert.Equal(t, refdex.NodeFunction, f.Type)

		a := findNode(t, db, catA)
		assert.Equal(t, refdex.RootParentID, a.ParentID)
		assert.Equal(t, "About Module a", a.Description)
		assert.ElementsMatch(t, []string{"XReader", "load", "YWriter", "f_helper"}, a.Keywords)
		assert.Equal(t, []int64{x.ID, y.ID, f.ID}, a.ChildIDs)
		assert.Equal(t, a.ID, x.ParentID)

		sub := findNode(t, db, catBSub)
		assert.Equal(t, refdex.NodeCategory, sub.Type)
		assert.Equal(t, 2, sub.Depth)
		z := findNode(t, db, classZ)
		assert.Equal(t, 3, z.Depth)
		assert.Equal(t, []string{"ZClient"}, sub.Keywords)

		b := findNode(t, db, catB)
		assert.Equal(t, []string{"ZClient"}, b.Keywords)
		assert.Equal(t, []int64{sub.ID}, b.ChildIDs)
	})

	t.Run("second pass over unchanged site makes no model calls and no writes", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)
		require.Positive(t, s.calls())
		before := findNode(t, db, catA)

		s.resetCalls()
		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, s.calls())
		assert.Equal(t, 0, result.Writes)
		assert.Equal(t, 0, result.Derived)
		assert.Equal(t, 7, result.Skipped)

		after := findNode(t, db, catA)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
		assert.Equal(t, before.Keywords, after.Keywords)
	})

	t.Run("changed leaf propagates to its ancestors", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		s.mu.Lock()
		s.pages[classZ] = &refdex.ParsedPage{ContentHTML: "Class Z v2"}
		s.keywords["Class Z v2"] = "ZClient, ZPool"
		s.mu.Unlock()
		s.resetCalls()

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		// Describe and keywords for Z only; categories keep their descriptions.
		assert.Equal(t, 2, s.calls())
		assert.Equal(t, 3, result.Writes)
		assert.Equal(t, []string{"ZClient", "ZPool"}, findNode(t, db, catBSub).Keywords)
		assert.Equal(t, []string{"ZClient", "ZPool"}, findNode(t, db, catB).Keywords)
		assert.ElementsMatch(t, []string{"XReader", "load", "YWriter", "f_helper"}, findNode(t, db, catA).Keywords)
	})

	t.Run("fetch failure leaves the page out of its parent until it recovers", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.setFetchFailure(classY, true)
		c := newCrawler(db, s)

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Unresolved)

		assert.Equal(t, []string{"XReader", "load"}, findNode(t, db, classX).Keywords)
		assert.Equal(t, []string{"f_helper"}, findNode(t, db, funcF).Keywords)
		assert.Empty(t, findNode(t, db, classY).Description)

		x, f := findNode(t, db, classX), findNode(t, db, funcF)
		a := findNode(t, db, catA)
		assert.ElementsMatch(t, []string{"XReader", "load", "f_helper"}, a.Keywords)
		assert.Equal(t, []int64{x.ID, f.ID}, a.ChildIDs)
		assert.Empty(t, a.Checksum)
		assert.Equal(t, "About Module a", a.Description)

		// The other subtree is unaffected.
		assert.Equal(t, []string{"ZClient"}, findNode(t, db, catB).Keywords)

		s.setFetchFailure(classY, false)
		s.resetCalls()

		result, err = c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Unresolved)
		// Y is derived; A is described again since its checksum was never stored.
		assert.Equal(t, 3, s.calls())
		a = findNode(t, db, catA)
		assert.ElementsMatch(t, []string{"XReader", "load", "YWriter", "f_helper"}, a.Keywords)
		assert.Equal(t, []int64{x.ID, findNode(t, db, classY).ID, f.ID}, a.ChildIDs)
		assert.Equal(t, crawl.Fingerprint("Module a"), a.Checksum)
	})

	t.Run("model failure degrades to an incomplete node", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.failModel["Class X"] = true
		c := newCrawler(db, s)

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.ModelFailures)

		x := findNode(t, db, classX)
		assert.Empty(t, x.Description)
		assert.Empty(t, x.Keywords)
		assert.Empty(t, x.Checksum)

		a := findNode(t, db, catA)
		assert.ElementsMatch(t, []string{"YWriter", "load", "f_helper"}, a.Keywords)
		assert.NotContains(t, a.ChildIDs, x.ID)
		assert.Empty(t, a.Checksum)
		assert.Equal(t, []string{"YWriter", "load"}, findNode(t, db, classY).Keywords)
	})

	t.Run("leaf that always fails keeps its ancestors searchable", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.pages[catBSub].ClassLinks = []string{classZ, classW}
		s.pages[classW] = &refdex.ParsedPage{ContentHTML: "Class W"}
		s.keywords["Class W"] = "WPool"
		s.setFetchFailure(classZ, true)
		c := newCrawler(db, s)

		for pass := range 3 {
			result, err := c.Crawl(context.Background(), indexURL, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Unresolved, "pass %d", pass)
		}

		w := findNode(t, db, classW)
		sub := findNode(t, db, catBSub)
		assert.Equal(t, []string{"WPool"}, sub.Keywords)
		assert.Equal(t, []int64{w.ID}, sub.ChildIDs)
		assert.Empty(t, sub.Checksum)

		b := findNode(t, db, catB)
		assert.Equal(t, []string{"WPool"}, b.Keywords)
		assert.Equal(t, []int64{sub.ID}, b.ChildIDs)
		assert.Empty(t, b.Checksum)

		r := &search.Resolver{
			Nodes: sqlite.NewNodeService(db),
			Matcher: &mock.Matcher{ScoreFn: func(a, b string) int {
				if strings.Contains(b, a) {
					return 100
				}
				return 0
			}},
		}
		urls, err := r.Search(context.Background(), []string{"WPool"}, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{catB, catBSub, classW}, urls)
	})

	t.Run("subtree with no derived pages is left out of its parent", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.setFetchFailure(classZ, true)
		c := newCrawler(db, s)

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		sub := findNode(t, db, catBSub)
		assert.Empty(t, sub.Keywords)
		assert.Empty(t, sub.ChildIDs)
		assert.Equal(t, "About Module b.sub", sub.Description)

		b := findNode(t, db, catB)
		assert.Empty(t, b.Keywords)
		assert.Empty(t, b.ChildIDs)

		assert.ElementsMatch(t, []string{"XReader", "load", "YWriter", "f_helper"}, findNode(t, db, catA).Keywords)
	})

	t.Run("category description failure does not block its keywords", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)
		c.Summarizer = &mock.Summarizer{
			DescribeFn: func(ctx context.Context, text string) (string, error) {
				if text == "Module a" {
					return "", refdex.Errorf(refdex.EMODEL, "model unavailable")
				}
				return s.summarizer().DescribeFn(ctx, text)
			},
			ExtractKeywordsFn: s.summarizer().ExtractKeywordsFn,
		}

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.ModelFailures)
		a := findNode(t, db, catA)
		assert.Empty(t, a.Description)
		assert.Empty(t, a.Checksum)
		assert.ElementsMatch(t, []string{"XReader", "load", "YWriter", "f_helper"}, a.Keywords)
		assert.Len(t, a.ChildIDs, 3)
	})

	t.Run("returns error when the index cannot be fetched", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.setFetchFailure(indexURL, true)
		c := newCrawler(db, s)

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, refdex.EFETCH, refdex.ErrorCode(err))

		runs, err := sqlite.NewRunService(db).FindRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.True(t, runs[0].Finished())
	})

	t.Run("records run statistics", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)
		c.TokenCounter = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(strings.Fields(text)), nil
			},
		}

		result, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		runs, err := sqlite.NewRunService(db).FindRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, result.RunID, runs[0].ID)
		assert.Equal(t, indexURL, runs[0].IndexURL)
		assert.Equal(t, result.RunStats, runs[0].Stats)
		// Two words per page, seven pages sent to the model.
		assert.Equal(t, 14, runs[0].Stats.Tokens)
	})

	t.Run("stops descending at max depth", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)
		c.MaxDepth = 1

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 5, result.Visited)

		b := findNode(t, db, catB)
		assert.Empty(t, b.Keywords)
		assert.Empty(t, b.ChildIDs)
		assert.Empty(t, b.Checksum)

		_, err = sqlite.NewNodeService(db).FindNodeByURL(context.Background(), catBSub)
		assert.Equal(t, refdex.ENOTFOUND, refdex.ErrorCode(err))

		// Leaves below depth 1 are still processed.
		assert.NotEmpty(t, findNode(t, db, catA).Keywords)
	})

	t.Run("deduplicates repeated children", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.pages[catA].ClassLinks = []string{classX, classY, classX}
		c := newCrawler(db, s)

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		x := findNode(t, db, classX)
		y := findNode(t, db, classY)
		f := findNode(t, db, funcF)
		assert.Equal(t, []int64{x.ID, y.ID, f.ID}, findNode(t, db, catA).ChildIDs)
	})

	t.Run("falls back to the extractor when the content region is missing", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.pages[funcF] = &refdex.ParsedPage{}
		s.keywords["Function f extracted"] = "f_helper"
		c := newCrawler(db, s)
		c.Extractor = &mock.ContentExtractor{
			ExtractFn: func(html string) (*refdex.ExtractResult, error) {
				assert.Equal(t, funcF, html)
				return &refdex.ExtractResult{ContentHTML: "Function f extracted"}, nil
			},
		}

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		f := findNode(t, db, funcF)
		assert.Equal(t, "About Function f extracted", f.Description)
		assert.Equal(t, crawl.Fingerprint("Function f extracted"), f.Checksum)
	})

	t.Run("leaf without content is unresolved", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		s.pages[funcF] = &refdex.ParsedPage{}
		c := newCrawler(db, s)

		result, err := c.Crawl(context.Background(), indexURL, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Unresolved)
		a := findNode(t, db, catA)
		assert.NotContains(t, a.Keywords, "f_helper")
		assert.Len(t, a.ChildIDs, 2)
		assert.Empty(t, a.Checksum)
	})

	t.Run("reports progress from started to finished", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)

		var events []crawl.ProgressEvent
		_, err := c.Crawl(context.Background(), indexURL, func(e crawl.ProgressEvent) {
			events = append(events, e)
		})
		require.NoError(t, err)

		require.NotEmpty(t, events)
		assert.Equal(t, crawl.ProgressStarted, events[0].Type)
		assert.Equal(t, 2, events[0].Roots)
		last := events[len(events)-1]
		assert.Equal(t, crawl.ProgressFinished, last.Type)
		assert.Equal(t, 7, last.Visited)
		assert.Equal(t, 7, last.Writes)

		writes := 0
		for _, e := range events {
			if e.Type == crawl.ProgressWrite {
				writes++
			}
		}
		assert.Equal(t, 7, writes)
	})

	t.Run("rate limits by host", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		s := newSite()
		c := newCrawler(db, s)

		var mu sync.Mutex
		domains := map[string]int{}
		c.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				mu.Lock()
				defer mu.Unlock()
				domains[domain]++
				return nil
			},
		}

		_, err := c.Crawl(context.Background(), indexURL, nil)
		require.NoError(t, err)

		assert.Equal(t, map[string]int{"ref.example.com": 8}, domains)
	})
}

func TestCrawler_Crawl_Concurrency(t *testing.T) {
	t.Parallel()

	const leaves = 12

	s := newSite()
	s.index = []string{catA}
	links := make([]string, leaves)
	for i := range links {
		url := fmt.Sprintf("https://ref.example.com/a/C%d.html", i)
		links[i] = url
		text := fmt.Sprintf("Class C%d", i)
		s.pages[url] = &refdex.ParsedPage{ContentHTML: text}
		s.keywords[text] = fmt.Sprintf("kw%d", i)
	}
	s.pages[catA] = &refdex.ParsedPage{ContentHTML: "Module a", ClassLinks: links}

	db := openDB(t)
	c := newCrawler(db, s)
	c.Concurrency = 2

	var inFlight, peak atomic.Int32
	inner := s.fetcher()
	c.Fetcher = &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (string, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return inner.Fetch(ctx, url)
		},
	}

	result, err := c.Crawl(context.Background(), indexURL, nil)

	require.NoError(t, err)
	assert.Equal(t, leaves+1, result.Visited)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, findNode(t, db, catA).Keywords, leaves)
}
