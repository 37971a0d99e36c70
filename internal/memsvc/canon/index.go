package canon

import (
	"sync"

	"github.com/coregx/ahocorasick"
)

// aliasIndex is an in-memory mirror of the alias table's exact-match
// mappings, accelerated with a single Aho-Corasick automaton over every
// known alias. Exact-match lookup for one normalized string is a
// single full-string scan: a match spanning [0, len) is an exact alias
// hit, letting many aliases be checked in one automaton pass instead of
// per-alias string comparisons.
type aliasIndex struct {
	mu           sync.RWMutex
	ac           *ahocorasick.Automaton
	patterns     []string
	aliasToCanon map[string]string
}

func newAliasIndex() *aliasIndex {
	return &aliasIndex{aliasToCanon: make(map[string]string)}
}

// rebuild replaces the automaton with one built from the full alias set
// (called at startup from the Store, and after any Teacher-sourced
// addition).
func (idx *aliasIndex) rebuild(aliasToCanon map[string]string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	patterns := make([]string, 0, len(aliasToCanon))
	for alias := range aliasToCanon {
		patterns = append(patterns, alias)
	}

	var ac *ahocorasick.Automaton
	if len(patterns) > 0 {
		built, err := ahocorasick.NewBuilder().
			AddStrings(patterns).
			SetMatchKind(ahocorasick.LeftmostLongest).
			SetPrefilter(true).
			Build()
		if err != nil {
			return err
		}
		ac = built
	}

	idx.ac = ac
	idx.patterns = patterns
	idx.aliasToCanon = aliasToCanon
	return nil
}

// add registers one new alias -> canonical mapping without a full
// rebuild of the caller-visible map, then rebuilds the automaton (cheap
// relative to a Teacher round-trip, and keeps the automaton consistent
// with aliasToCanon).
func (idx *aliasIndex) add(alias, canonical string) error {
	idx.mu.RLock()
	merged := make(map[string]string, len(idx.aliasToCanon)+1)
	for k, v := range idx.aliasToCanon {
		merged[k] = v
	}
	idx.mu.RUnlock()
	merged[alias] = canonical

	return idx.rebuild(merged)
}

// all returns a snapshot copy of the current alias->canonical map, for
// merging in newly-learned aliases before a rebuild.
func (idx *aliasIndex) all() map[string]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]string, len(idx.aliasToCanon))
	for k, v := range idx.aliasToCanon {
		out[k] = v
	}
	return out
}

// lookup reports the canonical topic for an exact alias match, if any.
func (idx *aliasIndex) lookup(normalized string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if normalized == "" || idx.ac == nil {
		return "", false
	}
	if canonical, ok := idx.aliasToCanon[normalized]; ok {
		// fast path: direct map hit confirms what the automaton would
		// also report, without needing to inspect match spans.
		return canonical, true
	}
	matches := idx.ac.FindAllOverlapping([]byte(normalized))
	for _, m := range matches {
		if m.Start == 0 && m.End == len(normalized) {
			return idx.aliasToCanon[idx.patterns[m.PatternID]], true
		}
	}
	return "", false
}
