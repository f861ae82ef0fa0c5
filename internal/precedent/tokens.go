package precedent

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common English words excluded from overlap matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true,
	"on": true, "to": true, "with": true, "about": true, "it": true,
	"its": true, "this": true, "that": true, "will": true, "would": true,
	"erection": true, "proposed": true, "existing": true, "new": true,
}

// tokenize splits text into unique lowercase non-stopword tokens.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// #endregion stopwords
