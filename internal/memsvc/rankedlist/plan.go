package rankedlist

// Action names the outcome of one explicit-rank ranked-list write.
// Kept local to this package to stay storage-agnostic; facts.Store maps
// it onto its own ApplyResult type.
type Action string

const (
	ActionMove   Action = "move"
	ActionInsert Action = "insert"
	ActionNoop   Action = "noop"
	ActionAppend Action = "append"
)

// Shift is one "mark old current row not-current, insert new current row
// at a different rank with the same value" step.
type Shift struct {
	FromRank int
	ToRank   int
	Value    string
}

// Plan is the full sequence of mutations needed to realize one explicit-rank
// ranked_list_set write.
type Plan struct {
	Action      Action
	FinalRank   int
	StoreValue  string // canonical form on fuzzy match, else the cleaned new value
	OldRank     *int   // the matched item's prior rank, if any
	RemoveRanks []int  // ranks whose current row is retired with no replacement
	Shifts      []Shift
}

func containsRank(ranks []int, r int) bool {
	for _, x := range ranks {
		if x == r {
			return true
		}
	}
	return false
}

func findItem(items []Item, rank int) (Item, bool) {
	for _, it := range items {
		if it.Rank == rank {
			return it, true
		}
	}
	return Item{}, false
}

// PlanExplicit implements the MOVE/INSERT/NO-OP/APPEND state machine for an
// explicit-rank ranked_list_set write.
func PlanExplicit(items []Item, desiredRank int, newValue string) Plan {
	n := len(items)
	target := ResolveTarget(newValue, items)

	k := desiredRank
	clamped := false
	if k > n+1 {
		k = n + 1
		clamped = true
	}

	storeValue := CleanStoredValue(newValue)
	if target.Found {
		storeValue = target.CanonicalValue
	}

	if target.Found && !clamped && target.Item.Rank == k {
		return Plan{Action: ActionNoop, FinalRank: k, StoreValue: storeValue}
	}

	normTarget := NormalizeRankItem(storeValue)

	var shifts []Shift
	var shiftedFromRanks []int

	if target.Found {
		kPrime := target.Item.Rank
		if kPrime > k {
			for r := kPrime - 1; r >= k; r-- {
				if it, ok := findItem(items, r); ok {
					shifts = append(shifts, Shift{FromRank: r, ToRank: r + 1, Value: it.Value})
					shiftedFromRanks = append(shiftedFromRanks, r)
				}
			}
		} else if kPrime < k {
			for r := kPrime + 1; r <= k; r++ {
				if it, ok := findItem(items, r); ok {
					shifts = append(shifts, Shift{FromRank: r, ToRank: r - 1, Value: it.Value})
					shiftedFromRanks = append(shiftedFromRanks, r)
				}
			}
		}
	} else {
		for r := n; r >= k; r-- {
			if it, ok := findItem(items, r); ok {
				shifts = append(shifts, Shift{FromRank: r, ToRank: r + 1, Value: it.Value})
				shiftedFromRanks = append(shiftedFromRanks, r)
			}
		}
	}

	// Defensive dedup: retire every current row (not already part of a
	// shift) whose normalized value matches the value being (re)written —
	// under invariants this is at most the matched target's own old row.
	var removeRanks []int
	for _, it := range items {
		if containsRank(shiftedFromRanks, it.Rank) {
			continue
		}
		if NormalizeRankItem(it.Value) == normTarget {
			removeRanks = append(removeRanks, it.Rank)
		}
	}

	action := ActionInsert
	if target.Found {
		action = ActionMove
	}
	if clamped {
		action = ActionAppend
	}

	var oldRank *int
	if target.Found {
		r := target.Item.Rank
		oldRank = &r
	}

	return Plan{
		Action:      action,
		FinalRank:   k,
		StoreValue:  storeValue,
		OldRank:     oldRank,
		RemoveRanks: removeRanks,
		Shifts:      shifts,
	}
}

// AppendDecision is the outcome of an unranked ranked_list_set write.
type AppendDecision struct {
	Duplicate    bool
	ExistingRank int
	Rank         int // the rank the value was (or would be) appended at
	StoreValue   string
}

// PlanAtomicAppend decides whether an unranked append proceeds at
// max_rank+1 or is blocked by an existing normalized-equal value.
func PlanAtomicAppend(items []Item, maxRank int, newValue string) AppendDecision {
	normNew := NormalizeRankItem(newValue)
	for _, it := range items {
		if NormalizeRankItem(it.Value) == normNew {
			return AppendDecision{Duplicate: true, ExistingRank: it.Rank, StoreValue: it.Value}
		}
	}
	return AppendDecision{Rank: maxRank + 1, StoreValue: CleanStoredValue(newValue)}
}
