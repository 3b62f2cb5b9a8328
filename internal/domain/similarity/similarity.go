// Package similarity scores how alike two free-text transaction
// descriptions are.
//
// The bank and the budgeting ledger label the same purchase differently:
// truncated, reordered, or padded with statement boilerplate. Score cleans
// both strings and takes the best of three fuzzy measures.
package similarity

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultThreshold is the score at or above which two descriptions are
// considered to describe the same movement.
const DefaultThreshold = 95

// Statement boilerplate injected by templated bank text. Matching happens
// after whitespace removal, so the spaced originals collapse to these
// forms.
var boilerplate = []string{
	"PAIEMENTPARCARTE", // card payment marker
	"AVOIRCARTE",       // card refund marker
}

// trailingDate matches a DD/MM token some banks append to the label.
var trailingDate = regexp.MustCompile(`\d{2}/\d{2}$`)

// Score returns a similarity in [0, 100] for two raw descriptions. It is a
// pure function: deterministic, no side effects.
func Score(a, b string) int {
	ca := Clean(a)
	cb := Clean(b)

	best := fuzzy.Ratio(ca, cb)
	if partial := fuzzy.PartialRatio(ca, cb); partial > best {
		best = partial
	}
	if tokenSort := fuzzy.TokenSortRatio(ca, cb); tokenSort > best {
		best = tokenSort
	}
	return best
}

// Clean normalizes a raw description for scoring: all whitespace removed,
// boilerplate markers dropped, one trailing DD/MM token stripped.
func Clean(s string) string {
	s = strings.Join(strings.Fields(s), "")
	for _, marker := range boilerplate {
		s = strings.ReplaceAll(s, marker, "")
	}
	return trailingDate.ReplaceAllString(s, "")
}
