package refdex

import "context"

// Matching defaults.
const (
	// DefaultMatchThreshold is the minimum fuzzy score for a query keyword
	// to count as a match.
	DefaultMatchThreshold = 40

	// DefaultMatchFloor is the match rate a node must reach to be selected.
	DefaultMatchFloor = 0.01

	// DefaultQuestionKeywords is the number of keywords requested for a
	// question.
	DefaultQuestionKeywords = 10
)

// Matcher scores the similarity of two strings.
type Matcher interface {
	// Score returns a similarity in [0, 100].
	Score(a, b string) int
}

// Status describes how a resolution ended.
type Status string

// Resolution statuses.
const (
	// StatusMatched means at least one node cleared the match floor.
	StatusMatched Status = "matched"

	// StatusNoMatch means keywords were generated but no node cleared the floor.
	StatusNoMatch Status = "no_match"

	// StatusNoKeywords means no keywords could be generated for the question.
	StatusNoKeywords Status = "no_keywords"
)

// Resolution is the outcome of resolving a question.
type Resolution struct {
	Question string   `json:"question"`
	Keywords []string `json:"keywords"`

	// URLs in search order. Duplicates are possible.
	URLs   []string `json:"urls"`
	Status Status   `json:"status"`
}

// Resolver answers questions with reference page URLs.
type Resolver interface {
	// Resolve returns the URLs of the pages most relevant to question.
	// Model failures degrade to StatusNoKeywords rather than an error.
	Resolve(ctx context.Context, question string) (*Resolution, error)
}
