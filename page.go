package refdex

// ParsedPage is the result of parsing a reference page.
type ParsedPage struct {
	// ContentHTML is the designated content region with header, footer and
	// navigation removed. Empty when the region is absent.
	ContentHTML string

	// CategoryLinks are links to sub-category pages.
	CategoryLinks []string

	// ClassLinks and FunctionLinks are links found in the "Classes" and
	// "Functions" listing sections.
	ClassLinks    []string
	FunctionLinks []string
}

// PageParser extracts content and typed links from reference pages.
// A missing listing section yields zero links, never an error.
type PageParser interface {
	// IndexLinks returns the top-level category links of the index page.
	IndexLinks(html string, pageURL string) ([]string, error)

	// ParsePage returns the content region and typed links of a page.
	ParsePage(html string, pageURL string) (*ParsedPage, error)
}
