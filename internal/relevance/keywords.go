// Package relevance scores catalog products against free text and picks
// what the assistant shows inline and in the carousel.
package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordLen: tokens of this many runes or fewer are dropped.
const minKeywordLen = 3

var stopWords = map[string]struct{}{
	"gift":      {},
	"toys":      {},
	"looking":   {},
	"want":      {},
	"recommend": {},
	"need":      {},
	"please":    {},
}

// ExtractKeywords returns the set of lowercase tokens of text worth matching
// against product fields.
func ExtractKeywords(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= minKeywordLen {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
