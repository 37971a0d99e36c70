// Package facts implements the Fact Store: durable, transactional
// storage of project-scoped facts with temporal versioning
// (supersession) and the ranked-list contiguity/uniqueness invariants.
package facts

// ValueType is one of the typed kinds a fact's value_text can represent.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueNumber ValueType = "number"
	ValueBool   ValueType = "bool"
	ValueDate   ValueType = "date"
	ValueJSON   ValueType = "json"
)

// Fact is a single attribute assertion about a project.
type Fact struct {
	FactID            int64
	ProjectID         string
	FactKey           string
	ValueText         string
	ValueType         ValueType
	Confidence        float64
	SourceMessageUUID string
	CreatedAt         int64
	EffectiveAt       int64
	SupersedesFactID  *int64
	IsCurrent         bool
}

// RankedItem is one row of a ranked list, as returned by GetRankedList.
type RankedItem struct {
	Rank              int
	ValueText         string
	FactKey           string
	SourceMessageUUID string
}

// RankMutationAction names the outcome of one ranked-list write: the
// MOVE/INSERT/NO-OP/APPEND taxonomy.
type RankMutationAction string

const (
	ActionMove   RankMutationAction = "move"
	ActionInsert RankMutationAction = "insert"
	ActionNoop   RankMutationAction = "noop"
	ActionAppend RankMutationAction = "append"
)

// RankMutation records what happened to one fact_key during a bulk
// transaction, for ApplyResult.rank_mutations.
type RankMutation struct {
	Action  RankMutationAction
	OldRank *int
	NewRank int
	Value   string
	Topic   string
}

// DuplicateBlocked records an atomic-append that was skipped because the
// value already exists in the list.
type DuplicateBlocked struct {
	ExistingRank int
	Topic        string
	ListKey      string
}

// RankAssignmentSource says whether a fact_key's rank was produced by an
// explicit user directive or by the atomic-append max_rank+1 rule.
type RankAssignmentSource string

const (
	RankExplicit     RankAssignmentSource = "explicit"
	RankAtomicAppend RankAssignmentSource = "atomic_append"
)

// ApplyResult is the combined outcome of a bulk_transaction /
// apply_facts_ops call.
type ApplyResult struct {
	StoreCount           int
	UpdateCount          int
	StoredFactKeys       []string
	Warnings             []string
	Errors               []string
	RankAssignmentSource map[string]RankAssignmentSource
	DuplicateBlocked     map[string]DuplicateBlocked
	RankMutations        map[string]RankMutation
}

func newApplyResult() *ApplyResult {
	return &ApplyResult{
		RankAssignmentSource: make(map[string]RankAssignmentSource),
		DuplicateBlocked:     make(map[string]DuplicateBlocked),
		RankMutations:        make(map[string]RankMutation),
	}
}
