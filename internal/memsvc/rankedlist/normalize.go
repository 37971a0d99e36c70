// Package rankedlist implements the Ranked-List Engine: value
// normalization, alias/fuzzy target resolution, and the MOVE/INSERT/
// NO-OP/APPEND state machine. It is pure and storage-agnostic;
// the facts package drives it and applies the resulting mutation plan
// inside one SQLite transaction.
package rankedlist

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// smartQuoteMap is an exact code-point table, not a generic Unicode
// fold: curly/smart quotes and en/em dashes map to their ASCII
// equivalents, and an ellipsis character collapses to three periods.
var smartQuoteMap = map[rune]string{
	'‘': "'", '’': "'", '‛': "'",
	'“': `"`, '”': `"`, '‟': `"`,
	'–': "-", '—': "-",
	'…': "...",
}

var innerSpaces = regexp.MustCompile(`\s+`)

// NormalizeRankItem is the single source of truth for equality on ranked
// items: NFKC, smart-quote mapping, whitespace collapse, trailing
// punctuation strip (together with any whitespace the strip exposes),
// lowercase. It is idempotent.
func NormalizeRankItem(value string) string {
	s := norm.NFKC.String(value)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := smartQuoteMap[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = strings.TrimSpace(s)
	s = innerSpaces.ReplaceAllString(s, " ")
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,!?;:", r)
	})
	s = strings.ToLower(s)
	return s
}

// CleanStoredValue applies only the whitespace cleanup the original value
// receives before being persisted verbatim.
func CleanStoredValue(value string) string {
	s := strings.TrimSpace(value)
	s = innerSpaces.ReplaceAllString(s, " ")
	return s
}

// isWordRune reports whether r can be part of a token for tokenization
// purposes.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
