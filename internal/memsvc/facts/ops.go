package facts

import (
	"context"
	"fmt"
	"time"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
	"github.com/kittclouds/memsvc/internal/memsvc/rankedlist"
)

// OpKind names the low-level write taxonomy bulk_transaction accepts.
type OpKind string

const (
	OpRankedListSet   OpKind = "ranked_list_set"
	OpSet             OpKind = "set"
	OpRankedListClear OpKind = "ranked_list_clear"
)

// Op is one low-level write within a bulk_transaction call. Topic is
// expected to already be canonical (the Canonicalizer runs before the
// Ranked-List Engine); Rank is nil for an atomic append, or a concrete
// 1-based rank for an explicit-rank write ("last" sentinels must already
// be resolved by the Dispatcher).
type Op struct {
	Kind       OpKind
	Topic      string
	Value      string
	Rank       *int
	FactKey    string
	ValueType  ValueType
	Confidence float64
}

// BulkTransaction commits a sequence of low-level writes atomically.
// All ops share one immediate transaction; ranked-list mutations use the
// Ranked-List Engine (package rankedlist) for normalization, fuzzy
// matching, and the MOVE/INSERT/NO-OP/APPEND state machine. Every
// list_key touched is invariant-checked before commit; any violation
// rolls back the whole transaction.
func (s *Store) BulkTransaction(ctx context.Context, projectID, messageUUID string, ops []Op) (*ApplyResult, error) {
	if !validProjectID(projectID) {
		return nil, fmt.Errorf("%w: project_id %q is not a valid UUID", errs.ErrInvalidInput, projectID)
	}

	result := newApplyResult()
	now := time.Now().UnixMilli()

	// Per-transaction cache of each touched list's current items, so the
	// atomic-append max-rank computation and fuzzy matching see prior
	// writes within the same bulk call without re-reading the database.
	listCache := make(map[string][]rankedlist.Item)
	touchedLists := make(map[string]bool)

	err := s.withImmediateTx(ctx, func(ctx context.Context, tx *txHandle) error {
		loadList := func(topic string) ([]rankedlist.Item, string, error) {
			listKey := CanonicalListKey(topic)
			if items, ok := listCache[listKey]; ok {
				return items, listKey, nil
			}
			rows, err := getRankedListTx(ctx, tx, projectID, listKey)
			if err != nil {
				return nil, listKey, err
			}
			items := make([]rankedlist.Item, 0, len(rows))
			for _, r := range rows {
				items = append(items, rankedlist.Item{Rank: r.Rank, Value: r.ValueText, FactKey: r.FactKey, SourceMessageUUID: r.SourceMessageUUID})
			}
			listCache[listKey] = items
			return items, listKey, nil
		}

		for _, op := range ops {
			switch op.Kind {
			case OpSet:
				normKey, warn := NormalizeFactKey(op.FactKey)
				if warn != "" {
					result.Warnings = append(result.Warnings, warn)
				}
				normValue, warn := NormalizeFactValue(op.Value, false)
				if warn != "" {
					result.Warnings = append(result.Warnings, warn)
				}
				valueType := op.ValueType
				if valueType == "" {
					valueType = ValueString
				}
				confidence := op.Confidence
				if confidence == 0 {
					confidence = 1.0
				}
				factID, hadPrior, err := storeFactTx(ctx, tx, projectID, normKey, normValue, valueType, confidence, messageUUID, now)
				if err != nil {
					return err
				}
				_ = factID
				result.StoreCount++
				if hadPrior {
					result.UpdateCount++
				}
				result.StoredFactKeys = append(result.StoredFactKeys, normKey)

			case OpRankedListClear:
				return fmt.Errorf("%w: ranked_list_clear is not supported", errs.ErrInvalidInput)

			case OpRankedListSet:
				items, listKey, err := loadList(op.Topic)
				if err != nil {
					return err
				}
				touchedLists[listKey] = true

				normValue, warn := NormalizeFactValue(op.Value, true)
				if warn != "" {
					result.Warnings = append(result.Warnings, warn)
				}

				if op.Rank == nil {
					maxRank := 0
					for _, it := range items {
						if it.Rank > maxRank {
							maxRank = it.Rank
						}
					}
					decision := rankedlist.PlanAtomicAppend(items, maxRank, normValue)
					if decision.Duplicate {
						result.DuplicateBlocked[rankedlist.NormalizeRankItem(normValue)] = DuplicateBlocked{
							ExistingRank: decision.ExistingRank,
							Topic:        op.Topic,
							ListKey:      listKey,
						}
						continue
					}
					factKey := CanonicalRankKey(op.Topic, decision.Rank)
					_, _, err := storeFactTx(ctx, tx, projectID, factKey, decision.StoreValue, ValueString, 1.0, messageUUID, now)
					if err != nil {
						return err
					}
					listCache[listKey] = append(items, rankedlist.Item{Rank: decision.Rank, Value: decision.StoreValue, FactKey: factKey, SourceMessageUUID: messageUUID})
					result.StoreCount++
					result.StoredFactKeys = append(result.StoredFactKeys, factKey)
					result.RankAssignmentSource[factKey] = RankAtomicAppend
					result.RankMutations[factKey] = RankMutation{Action: ActionAppend, NewRank: decision.Rank, Value: decision.StoreValue, Topic: op.Topic}
					continue
				}

				plan := rankedlist.PlanExplicit(items, *op.Rank, normValue)
				finalFactKey := CanonicalRankKey(op.Topic, plan.FinalRank)

				if plan.Action == rankedlist.ActionNoop {
					result.RankMutations[finalFactKey] = RankMutation{Action: ActionNoop, NewRank: plan.FinalRank, Value: plan.StoreValue, Topic: op.Topic}
					continue
				}

				// Removals go first: on a MOVE the matched item's old rank is
				// also a shift destination, and a shift's insert there must
				// not be retired right after.
				for _, r := range plan.RemoveRanks {
					key := CanonicalRankKey(op.Topic, r)
					if err := retireCurrentTx(ctx, tx, projectID, key); err != nil {
						return err
					}
				}
				for _, sh := range plan.Shifts {
					fromKey := CanonicalRankKey(op.Topic, sh.FromRank)
					toKey := CanonicalRankKey(op.Topic, sh.ToRank)
					if err := retireCurrentTx(ctx, tx, projectID, fromKey); err != nil {
						return err
					}
					if _, _, err := storeFactTx(ctx, tx, projectID, toKey, sh.Value, ValueString, 1.0, messageUUID, now); err != nil {
						return err
					}
				}

				_, hadPrior, err := storeFactTx(ctx, tx, projectID, finalFactKey, plan.StoreValue, ValueString, 1.0, messageUUID, now)
				if err != nil {
					return err
				}

				result.StoreCount++
				if hadPrior {
					result.UpdateCount++
				}
				result.StoredFactKeys = append(result.StoredFactKeys, finalFactKey)
				result.RankAssignmentSource[finalFactKey] = RankExplicit
				var oldRank *int
				if plan.OldRank != nil {
					v := *plan.OldRank
					oldRank = &v
				}
				result.RankMutations[finalFactKey] = RankMutation{
					Action:  mapAction(plan.Action),
					OldRank: oldRank,
					NewRank: plan.FinalRank,
					Value:   plan.StoreValue,
					Topic:   op.Topic,
				}

				// refresh the in-memory cache to reflect this mutation so
				// later ops in the same bulk call see a consistent list.
				refreshed := make([]rankedlist.Item, 0, len(items)+1)
				shiftFrom := make(map[int]bool, len(plan.Shifts))
				shiftTo := make(map[int]string, len(plan.Shifts))
				for _, sh := range plan.Shifts {
					shiftFrom[sh.FromRank] = true
					shiftTo[sh.ToRank] = sh.Value
				}
				removed := make(map[int]bool, len(plan.RemoveRanks))
				for _, r := range plan.RemoveRanks {
					removed[r] = true
				}
				for _, it := range items {
					if shiftFrom[it.Rank] || removed[it.Rank] || it.Rank == plan.FinalRank {
						continue
					}
					refreshed = append(refreshed, it)
				}
				for rank, val := range shiftTo {
					refreshed = append(refreshed, rankedlist.Item{Rank: rank, Value: val, FactKey: CanonicalRankKey(op.Topic, rank), SourceMessageUUID: messageUUID})
				}
				refreshed = append(refreshed, rankedlist.Item{Rank: plan.FinalRank, Value: plan.StoreValue, FactKey: finalFactKey, SourceMessageUUID: messageUUID})
				listCache[listKey] = refreshed
			}
		}

		for listKey := range touchedLists {
			if err := checkListInvariants(ctx, tx, projectID, listKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func mapAction(a rankedlist.Action) RankMutationAction {
	switch a {
	case rankedlist.ActionMove:
		return ActionMove
	case rankedlist.ActionInsert:
		return ActionInsert
	case rankedlist.ActionAppend:
		return ActionAppend
	default:
		return ActionNoop
	}
}
