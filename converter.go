package refdex

// Converter converts content HTML into the readable text handed to the
// summarizer and the fingerprinter.
type Converter interface {
	// Convert transforms HTML content into Markdown text.
	Convert(html string) (string, error)
}
