package refdex

import "strings"

// DefaultStopWords are generic reference terms that carry no search value.
var DefaultStopWords = []string{
	"This module", "This class", "This function",
	"class", "function", "method", "property",
	"Base", "Abstract", "Interface", "required",
	"str", "dict", "list", "any", "optional",
}

// StopList is a set of keywords removed during refinement.
// Matching is exact and case-sensitive.
type StopList map[string]struct{}

// NewStopList returns a StopList containing words.
func NewStopList(words ...string) StopList {
	s := make(StopList, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Contains reports whether keyword is on the list.
func (s StopList) Contains(keyword string) bool {
	_, ok := s[keyword]
	return ok
}

// RefineKeywords normalizes a raw comma-separated keyword string: entries
// are trimmed, stripped of quote characters, deduplicated and filtered
// through stop. Case is preserved; the first occurrence order is kept.
func RefineKeywords(raw string, stop StopList) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		k := strings.TrimSpace(part)
		k = strings.ReplaceAll(k, "'", "")
		k = strings.ReplaceAll(k, `"`, "")
		k = strings.TrimSpace(k)
		if k == "" || stop.Contains(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	return keywords
}

// UnionKeywords returns the deduplicated union of the keyword sets in the
// order they are first seen.
func UnionKeywords(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, set := range sets {
		for _, k := range set {
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			union = append(union, k)
		}
	}
	return union
}

// EqualKeywords reports whether a and b contain the same keywords,
// ignoring order.
func EqualKeywords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, k := range a {
		set[k]++
	}
	for _, k := range b {
		if set[k] == 0 {
			return false
		}
		set[k]--
	}
	return true
}
