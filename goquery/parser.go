// Package goquery parses pydata-sphinx-theme reference pages using goquery.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/refdex"
)

var _ refdex.PageParser = (*Parser)(nil)

// Selectors locates the parts of a reference page.
type Selectors struct {
	// IndexLinks matches the top-level category links on the index page.
	IndexLinks string

	// Article matches the content region.
	Article string

	// Strip matches elements removed from the content region.
	Strip string

	// CategoryLink matches candidate links inside the content region.
	// Only those containing a CategoryMarker element are kept.
	CategoryLink   string
	CategoryMarker string

	// ListingTable matches the table following a listing label paragraph.
	ListingTable string
	ListingLink  string

	ClassesLabel   string
	FunctionsLabel string
}

// DefaultSelectors returns selectors for the pydata-sphinx-theme.
func DefaultSelectors() Selectors {
	return Selectors{
		IndexLinks:     ".bd-toc-item.navbar-nav a.reference.internal",
		Article:        "article.bd-article",
		Strip:          "header, footer, nav, aside",
		CategoryLink:   "a.reference.internal",
		CategoryMarker: "span.std.std-ref",
		ListingTable:   "div.pst-scrollable-table-container",
		ListingLink:    "a.reference.internal",
		ClassesLabel:   "Classes",
		FunctionsLabel: "Functions",
	}
}

// Parser implements refdex.PageParser.
type Parser struct {
	sel Selectors
}

// NewParser creates a Parser using the default selectors.
func NewParser() *Parser {
	return NewParserWithSelectors(DefaultSelectors())
}

// NewParserWithSelectors creates a Parser using custom selectors.
func NewParserWithSelectors(sel Selectors) *Parser {
	return &Parser{sel: sel}
}

// IndexLinks returns the top-level category links of the index page in
// document order.
func (p *Parser) IndexLinks(html string, pageURL string) ([]string, error) {
	base, doc, err := parse(html, pageURL)
	if err != nil {
		return nil, err
	}

	c := newCollector(base)
	doc.Find(p.sel.IndexLinks).Each(func(_ int, a *goquery.Selection) {
		c.add(a)
	})
	return c.links, nil
}

// ParsePage returns the content region and the typed links of a page.
// Missing sections yield empty results.
func (p *Parser) ParsePage(html string, pageURL string) (*refdex.ParsedPage, error) {
	base, doc, err := parse(html, pageURL)
	if err != nil {
		return nil, err
	}

	page := &refdex.ParsedPage{}

	article := doc.Find(p.sel.Article).First()
	if article.Length() > 0 {
		categories := newCollector(base)
		article.Find(p.sel.CategoryLink).Each(func(_ int, a *goquery.Selection) {
			if a.Find(p.sel.CategoryMarker).Length() > 0 {
				categories.add(a)
			}
		})
		page.CategoryLinks = categories.links

		content := article.Clone()
		content.Find(p.sel.Strip).Remove()
		page.ContentHTML, err = goquery.OuterHtml(content)
		if err != nil {
			return nil, refdex.Errorf(refdex.EINVALID, "failed to render content: %v", err)
		}
	}

	page.ClassLinks = p.listingLinks(doc, base, p.sel.ClassesLabel)
	page.FunctionLinks = p.listingLinks(doc, base, p.sel.FunctionsLabel)

	return page, nil
}

// listingLinks returns the links in the first listing table that follows the
// paragraph whose text equals label.
func (p *Parser) listingLinks(doc *goquery.Document, base *url.URL, label string) []string {
	var table *goquery.Selection
	labelSeen := false

	// Matches of a selector group come back in document order.
	doc.Find("p, " + p.sel.ListingTable).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "p" {
			if !labelSeen && strings.TrimSpace(s.Text()) == label {
				labelSeen = true
			}
			return true
		}
		if labelSeen {
			table = s
			return false
		}
		return true
	})
	if table == nil {
		return nil
	}

	c := newCollector(base)
	table.Find(p.sel.ListingLink).Each(func(_ int, a *goquery.Selection) {
		c.add(a)
	})
	return c.links
}

func parse(html, pageURL string) (*url.URL, *goquery.Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, refdex.Errorf(refdex.EINVALID, "invalid page URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, refdex.Errorf(refdex.EINVALID, "failed to parse HTML: %v", err)
	}
	return base, doc, nil
}

// collector accumulates resolved same-host links in first-seen order.
type collector struct {
	base  *url.URL
	seen  map[string]struct{}
	links []string
}

func newCollector(base *url.URL) *collector {
	return &collector{base: base, seen: make(map[string]struct{})}
}

func (c *collector) add(a *goquery.Selection) {
	href, exists := a.Attr("href")
	if !exists || href == "" {
		return
	}

	if isNonHTTPLink(href) {
		return
	}

	resolved := resolveURL(c.base, href)
	if resolved == "" {
		return
	}

	// Exact host match; subdomains count as external.
	if !isSameHost(c.base, resolved) {
		return
	}

	if _, ok := c.seen[resolved]; ok {
		return
	}
	c.seen[resolved] = struct{}{}
	c.links = append(c.links, resolved)
}

// resolveURL resolves a relative URL against a base URL.
// Returns empty string if the href cannot be parsed or if the resolved URL
// is the base page itself. Fragments are stripped.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""

	result := resolved.String()
	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	if result == baseNoFragment.String() {
		return ""
	}
	return result
}

// isSameHost checks if the resolved URL has the same host as the base URL.
func isSameHost(base *url.URL, resolved string) bool {
	u, err := url.Parse(resolved)
	if err != nil {
		return false
	}
	return u.Host == base.Host
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
