package main

// Unexported helpers exposed for external tests.
var (
	FormatTokens = formatTokens
	ShortURL     = shortURL
)
