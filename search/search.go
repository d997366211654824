// Package search resolves questions to reference page URLs by a recursive,
// tie-aware fuzzy search over the stored tree.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/refdex"
)

// Scope selects the candidates searched below a matched node.
type Scope int

const (
	// ScopeSubtree searches only the children of the matched node.
	ScopeSubtree Scope = iota

	// ScopeDepth searches every node at the next depth.
	ScopeDepth
)

// ParseScope parses "subtree" or "depth".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "subtree":
		return ScopeSubtree, nil
	case "depth":
		return ScopeDepth, nil
	}
	return 0, refdex.Errorf(refdex.EINVALID, "invalid scope %q", s)
}

// Granularity selects what a query keyword is scored against.
type Granularity int

const (
	// MatchBlob scores a keyword against the node's whole keyword blob.
	MatchBlob Granularity = iota

	// MatchKeyword scores a keyword against each stored keyword and keeps
	// the best score.
	MatchKeyword
)

// ParseGranularity parses "blob" or "keyword".
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "blob":
		return MatchBlob, nil
	case "keyword":
		return MatchKeyword, nil
	}
	return 0, refdex.Errorf(refdex.EINVALID, "invalid granularity %q", s)
}

// DefaultMaxDepth bounds the recursion of a search.
const DefaultMaxDepth = 8

// Ensure Resolver implements refdex.Resolver at compile time.
var _ refdex.Resolver = (*Resolver)(nil)

// Resolver implements refdex.Resolver over the node store.
type Resolver struct {
	Nodes      refdex.NodeService
	Summarizer refdex.Summarizer
	Matcher    refdex.Matcher
	Cache      refdex.KeywordCache // optional

	// StopList filters question keywords. Nil selects refdex.DefaultStopWords.
	StopList refdex.StopList

	// Zero values select refdex.DefaultMatchThreshold,
	// refdex.DefaultMatchFloor, refdex.DefaultQuestionKeywords and
	// DefaultMaxDepth.
	Threshold   int
	Floor       float64
	MinKeywords int
	MaxDepth    int

	Scope       Scope
	Granularity Granularity

	Logger *slog.Logger
}

// Resolve derives keywords for question and searches from the top level.
// Model failures and empty keyword sets resolve to StatusNoKeywords; store
// failures are returned.
func (r *Resolver) Resolve(ctx context.Context, question string) (*refdex.Resolution, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, refdex.Errorf(refdex.EINVALID, "question required")
	}

	res := &refdex.Resolution{
		Question: question,
		Keywords: []string{},
		URLs:     []string{},
		Status:   refdex.StatusNoKeywords,
	}

	keywords := r.keywords(ctx, question)
	if len(keywords) == 0 {
		return res, nil
	}
	res.Keywords = keywords

	urls, err := r.Search(ctx, keywords, 1)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		res.Status = refdex.StatusNoMatch
		return res, nil
	}
	res.URLs = urls
	res.Status = refdex.StatusMatched
	return res, nil
}

// keywords returns the refined keywords for question, consulting the cache
// first. Failures are logged and yield no keywords.
func (r *Resolver) keywords(ctx context.Context, question string) []string {
	logger := r.logger()

	if r.Cache != nil {
		keywords, ok, err := r.Cache.GetKeywords(ctx, question)
		if err != nil {
			logger.Warn("keyword cache get", "err", err)
		} else if ok {
			return keywords
		}
	}

	raw, err := r.Summarizer.ExtractKeywords(ctx, question, r.minKeywords())
	if err != nil {
		logger.Warn("extract question keywords", "err", err)
		return nil
	}

	stop := r.StopList
	if stop == nil {
		stop = refdex.NewStopList(refdex.DefaultStopWords...)
	}
	keywords := refdex.RefineKeywords(raw, stop)

	if r.Cache != nil && len(keywords) > 0 {
		if err := r.Cache.SetKeywords(ctx, question, keywords); err != nil {
			logger.Warn("keyword cache set", "err", err)
		}
	}
	return keywords
}

// Search returns the URLs of the best matching nodes at depth and, for each
// of them with children, the URLs found one level below. Results follow
// search order and may contain duplicates under ScopeDepth.
func (r *Resolver) Search(ctx context.Context, keywords []string, depth int) ([]string, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	candidates, err := r.Nodes.FindNodes(ctx, refdex.NodeFilter{Depth: &depth})
	if err != nil {
		return nil, fmt.Errorf("find nodes at depth %d: %w", depth, err)
	}
	return r.search(ctx, keywords, candidates, depth)
}

func (r *Resolver) search(ctx context.Context, keywords []string, candidates []*refdex.Node, depth int) ([]string, error) {
	if depth > r.maxDepth() {
		return nil, nil
	}

	threshold := r.threshold()
	bucket := Bucket(candidates, func(n *refdex.Node) float64 {
		return MatchRate(r.Matcher, keywords, n, threshold, r.Granularity)
	}, r.floor())

	var urls []string
	for _, node := range bucket {
		urls = append(urls, node.URL)
		if len(node.ChildIDs) == 0 {
			continue
		}

		next, err := r.next(ctx, node, depth+1)
		if err != nil {
			return nil, err
		}
		found, err := r.search(ctx, keywords, next, depth+1)
		if err != nil {
			return nil, err
		}
		urls = append(urls, found...)
	}
	return urls, nil
}

// next returns the candidates searched below node.
func (r *Resolver) next(ctx context.Context, node *refdex.Node, depth int) ([]*refdex.Node, error) {
	if r.Scope == ScopeDepth {
		nodes, err := r.Nodes.FindNodes(ctx, refdex.NodeFilter{Depth: &depth})
		if err != nil {
			return nil, fmt.Errorf("find nodes at depth %d: %w", depth, err)
		}
		return nodes, nil
	}

	nodes, err := r.Nodes.FindNodes(ctx, refdex.NodeFilter{IDs: node.ChildIDs})
	if err != nil {
		return nil, fmt.Errorf("find children of node %d: %w", node.ID, err)
	}

	// Keep the document order recorded in ChildIDs.
	byID := make(map[int64]*refdex.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	ordered := make([]*refdex.Node, 0, len(nodes))
	for _, id := range node.ChildIDs {
		if n, ok := byID[id]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}

// Bucket returns the nodes tied at the highest match rate, in candidate
// order. The maximum starts at floor, so a node below floor is never
// selected. Nodes without keywords are skipped.
func Bucket(candidates []*refdex.Node, rate func(*refdex.Node) float64, floor float64) []*refdex.Node {
	best := floor
	var bucket []*refdex.Node
	for _, n := range candidates {
		if len(n.Keywords) == 0 {
			continue
		}
		r := rate(n)
		switch {
		case r > best:
			best = r
			bucket = []*refdex.Node{n}
		case r == best:
			bucket = append(bucket, n)
		}
	}
	return bucket
}

// MatchRate returns the fraction of keywords whose score against node
// reaches threshold.
func MatchRate(m refdex.Matcher, keywords []string, node *refdex.Node, threshold int, g Granularity) float64 {
	if len(keywords) == 0 {
		return 0
	}
	blob := node.KeywordBlob()

	matched := 0
	for _, k := range keywords {
		var score int
		if g == MatchKeyword {
			for _, nk := range node.Keywords {
				score = max(score, m.Score(k, nk))
			}
		} else {
			score = m.Score(k, blob)
		}
		if score >= threshold {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func (r *Resolver) threshold() int {
	if r.Threshold <= 0 {
		return refdex.DefaultMatchThreshold
	}
	return r.Threshold
}

func (r *Resolver) floor() float64 {
	if r.Floor <= 0 {
		return refdex.DefaultMatchFloor
	}
	return r.Floor
}

func (r *Resolver) minKeywords() int {
	if r.MinKeywords <= 0 {
		return refdex.DefaultQuestionKeywords
	}
	return r.MinKeywords
}

func (r *Resolver) maxDepth() int {
	if r.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return r.MaxDepth
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
