package rankedlist

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

var enStopwords = stopwords.MustGet("en")

// minTokenLen is the longest token length dropped for fuzzy matching;
// kept tokens are at least minTokenLen+1 chars.
const minTokenLen = 2

// tokenize splits a normalized value into the token set used for
// subset/Jaccard scoring: words longer than minTokenLen chars, with
// stop words dropped before tokenization.
func tokenize(normalized string) map[string]struct{} {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !isWordRune(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) <= minTokenLen {
			continue
		}
		if enStopwords.Contains(f) {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func intersectionSize(a, b map[string]struct{}) int {
	n := 0
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if _, ok := big[k]; ok {
			n++
		}
	}
	return n
}

func unionSize(a, b map[string]struct{}) int {
	n := len(a)
	for k := range b {
		if _, ok := a[k]; !ok {
			n++
		}
	}
	return n
}

// jaccardSubsetThreshold is the fuzzy-match acceptance threshold.
const jaccardSubsetThreshold = 0.85

// Item is one existing ranked-list row, as seen by the matcher.
type Item struct {
	Rank              int
	Value             string
	FactKey           string
	SourceMessageUUID string
}

// Target is the resolved alias/fuzzy match result.
type Target struct {
	Found          bool
	Item           Item
	CanonicalValue string // the value to store: existing canonical form on fuzzy match
	ExactMatch     bool
}

// ResolveTarget finds an existing item that either exactly matches the
// normalized new value, or whose token set is a superset of the new
// value's tokens above the subset/Jaccard threshold. Ties on
// subset_score break by higher Jaccard, then by lower existing rank
// (stable, earliest wins).
func ResolveTarget(newValue string, items []Item) Target {
	normNew := NormalizeRankItem(newValue)
	newTokens := tokenize(normNew)

	// Exact match first.
	for _, it := range items {
		if NormalizeRankItem(it.Value) == normNew {
			return Target{Found: true, Item: it, CanonicalValue: it.Value, ExactMatch: true}
		}
	}

	if len(newTokens) == 0 {
		return Target{}
	}

	var best Target
	bestSubset, bestJaccard := -1.0, -1.0
	for _, it := range items {
		candTokens := tokenize(NormalizeRankItem(it.Value))
		if len(candTokens) == 0 {
			continue
		}
		inter := intersectionSize(newTokens, candTokens)
		subsetScore := float64(inter) / float64(len(newTokens))
		if subsetScore < 1.0 && subsetScore < jaccardSubsetThreshold {
			continue
		}
		jaccard := float64(inter) / float64(unionSize(newTokens, candTokens))

		better := false
		switch {
		case subsetScore > bestSubset:
			better = true
		case subsetScore == bestSubset && jaccard > bestJaccard:
			better = true
		case subsetScore == bestSubset && jaccard == bestJaccard && (!best.Found || it.Rank < best.Item.Rank):
			better = true
		}
		if better {
			bestSubset, bestJaccard = subsetScore, jaccard
			best = Target{Found: true, Item: it, CanonicalValue: it.Value, ExactMatch: false}
		}
	}
	return best
}
