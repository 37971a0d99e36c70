package router

import "strconv"

// ApplyPostParseRankDetection fills in facts_read_candidate.rank from
// the raw message when the LM returned a facts/read plan with no rank.
// No-op for any other plane/operation or when a rank is already present.
func ApplyPostParseRankDetection(plan *RoutingPlan, message string) {
	if plan == nil || plan.ContentPlane != PlaneFacts || plan.Operation != OpRead {
		return
	}
	if plan.FactsReadCandidate == nil || plan.FactsReadCandidate.Rank != nil {
		return
	}
	if IsLastFavoriteQuery(message) {
		last := RankSentinelLast
		plan.FactsReadCandidate.Rank = &last
		return
	}
	if rank, ok := DetectOrdinalRank(message); ok {
		s := strconv.Itoa(rank)
		plan.FactsReadCandidate.Rank = &s
	}
}
