// Package htmltomarkdown turns the content region of a reference page into
// the Markdown text that is fingerprinted and summarized.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/refdex"
)

var _ refdex.Converter = (*Converter)(nil)

// cleanup is applied in order to the converted Markdown. Each rule removes
// text that changes between builds of the same page or carries nothing for
// the model.
var cleanup = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Sphinx permalinks after headings and signatures.
	{regexp.MustCompile(`\[¶\]\([^)]*\)|¶`), ""},
	// Inheritance diagrams and other images.
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},
	{regexp.MustCompile(`[ \t]+\n`), "\n"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// Converter implements refdex.Converter with html-to-markdown. Tables are
// kept because API pages list members in them.
type Converter struct {
	conv *converter.Converter
}

func NewConverter() *Converter {
	return &Converter{conv: converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	))}
}

// Convert returns the cleaned Markdown of html. Equal input gives equal
// output, so the result can be checksummed.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", refdex.Errorf(refdex.EINVALID, "empty HTML input")
	}

	md, err := c.conv.ConvertString(html)
	if err != nil {
		return "", refdex.Errorf(refdex.EINVALID, "convert to markdown: %v", err)
	}
	for _, r := range cleanup {
		md = r.re.ReplaceAllString(md, r.repl)
	}
	return strings.TrimSpace(md), nil
}
