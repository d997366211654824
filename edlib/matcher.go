// Package edlib provides the fuzzy string matcher used by the query resolver.
package edlib

import (
	"math"
	"unicode/utf8"

	"github.com/fwojciec/refdex"
	"github.com/hbollon/go-edlib"
)

var _ refdex.Matcher = (*Matcher)(nil)

// Matcher scores similarity as the longest common subsequence ratio,
// 100 * 2 * LCS / (len(a) + len(b)), rounded. Comparison is case-sensitive
// and lengths are counted in runes.
type Matcher struct{}

// NewMatcher returns a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// matrixCells is the largest LCS table handed to go-edlib, which allocates
// it whole. Longer pairs, such as a keyword against a category blob, use two
// rolling rows instead.
const matrixCells = 1 << 16

// Score returns the similarity of a and b in [0, 100].
// Empty input scores 0.
func (m *Matcher) Score(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)

	var lcs int
	if (la+1)*(lb+1) <= matrixCells {
		lcs = edlib.LCS(a, b)
	} else {
		lcs = rollingLCS([]rune(a), []rune(b))
	}
	return int(math.Round(200 * float64(lcs) / float64(la+lb)))
}

// rollingLCS returns the longest common subsequence length of a and b in
// O(min(len(a), len(b))) memory.
func rollingLCS(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	cur := make([]int, len(a)+1)
	for _, rb := range b {
		for i, ra := range a {
			if ra == rb {
				cur[i+1] = prev[i] + 1
			} else {
				cur[i+1] = max(cur[i], prev[i+1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(a)]
}
