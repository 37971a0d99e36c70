package dispatcher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kittclouds/memsvc/internal/memsvc/facts"
	"github.com/kittclouds/memsvc/internal/memsvc/router"
)

// ApplyFactsOps is the sole facts write entry point: it canonicalizes
// the write candidate's topic, builds the low-level ranked_list_set op
// sequence, and commits them through facts.Store.BulkTransaction in one
// transaction.
func (d *Dispatcher) ApplyFactsOps(ctx context.Context, projectID, messageUUID string, candidate *router.FactsWriteCandidate) (*facts.ApplyResult, error) {
	if candidate == nil {
		return nil, fmt.Errorf("apply_facts_ops: nil facts_write_candidate")
	}
	canonical, err := d.Canonicalizer.Canonicalize(ctx, candidate.Topic)
	if err != nil {
		return nil, fmt.Errorf("apply_facts_ops: canonicalize topic %q: %w", candidate.Topic, err)
	}

	var ops []facts.Op
	if candidate.Rank != nil {
		value := ""
		if len(candidate.Value) > 0 {
			value = candidate.Value[0]
		}
		ops = append(ops, facts.Op{
			Kind:  facts.OpRankedListSet,
			Topic: canonical.CanonicalTopic,
			Value: value,
			Rank:  candidate.Rank,
		})
	} else {
		for _, v := range candidate.Value {
			ops = append(ops, facts.Op{Kind: facts.OpRankedListSet, Topic: canonical.CanonicalTopic, Value: v})
		}
	}

	return d.Facts.BulkTransaction(ctx, projectID, messageUUID, ops)
}

// ExecuteFactsPlan is execute_facts_plan: it answers a
// facts_read_candidate deterministically from the Fact Store, resolving
// the "last" sentinel against the list's current max rank and materializing empty-valid/out-of-range answers as
// first-class results rather than errors or generative fallbacks.
func (d *Dispatcher) ExecuteFactsPlan(ctx context.Context, projectID string, candidate *router.FactsReadCandidate, excludeMessageUUID string, ordinalSource OrdinalParseSource) (*FactsAnswer, error) {
	if candidate == nil {
		return nil, fmt.Errorf("execute_facts_plan: nil facts_read_candidate")
	}

	canonical, err := d.Canonicalizer.Canonicalize(ctx, candidate.Topic)
	if err != nil {
		return nil, fmt.Errorf("execute_facts_plan: canonicalize topic %q: %w", candidate.Topic, err)
	}
	listKey := facts.CanonicalListKey(canonical.CanonicalTopic)

	items, err := d.Facts.GetRankedList(ctx, projectID, listKey)
	if err != nil {
		return nil, fmt.Errorf("execute_facts_plan: read ranked list %s: %w", listKey, err)
	}

	maxRank := 0
	for _, it := range items {
		if it.Rank > maxRank {
			maxRank = it.Rank
		}
	}

	answer := &FactsAnswer{
		CanonicalKeys:      []string{listKey},
		MaxAvailableRank:   maxRank,
		OrdinalParseSource: ordinalSource,
		FastPath:           "facts_retrieval",
	}

	if candidate.Rank == nil {
		// "List/Show my favorite <topic>" — every current item.
		answer.Count = len(items)
		answer.FactsEmptyValid = len(items) == 0
		answer.RankResultFound = len(items) > 0
		for _, it := range items {
			answer.Facts = append(answer.Facts, facts.Fact{
				ProjectID:         projectID,
				FactKey:           it.FactKey,
				ValueText:         it.ValueText,
				ValueType:         facts.ValueString,
				SourceMessageUUID: it.SourceMessageUUID,
				IsCurrent:         true,
			})
		}
		return answer, nil
	}

	rank, err := resolveRank(*candidate.Rank, maxRank)
	if err != nil {
		return nil, fmt.Errorf("execute_facts_plan: %w", err)
	}
	answer.RankApplied = &rank

	if maxRank == 0 {
		// Empty list: both a numeric rank and "last" are well-formed
		// requests against an empty list, and resolve to the same
		// deterministic, non-generative answer.
		answer.FactsEmptyValid = true
		answer.RankResultFound = false
		return answer, nil
	}
	if rank > maxRank {
		// Out-of-range: deterministic "only have N" answer, never a
		// fallback to the generative path.
		answer.RankResultFound = false
		return answer, nil
	}

	for _, it := range items {
		if it.Rank == rank {
			answer.RankResultFound = true
			answer.Count = 1
			answer.Facts = []facts.Fact{{
				ProjectID:         projectID,
				FactKey:           it.FactKey,
				ValueText:         it.ValueText,
				ValueType:         facts.ValueString,
				SourceMessageUUID: it.SourceMessageUUID,
				IsCurrent:         true,
			}}
			break
		}
	}
	return answer, nil
}

// resolveRank turns a candidate's rank string — a decimal rank or the
// "last" sentinel — into a concrete rank against the list's current
// max. "last" on an empty list resolves to rank 0, which the caller
// treats as empty-valid.
func resolveRank(rankStr string, maxRank int) (int, error) {
	if rankStr == router.RankSentinelLast {
		return maxRank, nil
	}
	n, err := strconv.Atoi(rankStr)
	if err != nil {
		return 0, fmt.Errorf("invalid rank %q", rankStr)
	}
	return n, nil
}
