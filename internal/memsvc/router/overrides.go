package router

import (
	"regexp"
	"strconv"
	"strings"
)

// Deterministic override patterns. Each pattern captures a topic and,
// where relevant, one or more values or a rank.

var (
	// "My favorite <topic> is/are <value(s)>."
	favoriteWritePattern = regexp.MustCompile(`(?i)^\s*my\s+favorite\s+([a-z0-9 '_-]+?)\s+(?:is|are)\s+(.+?)\.?\s*$`)

	// "My #N favorite <topic> is <value>."
	rankedWritePattern = regexp.MustCompile(`(?i)^\s*my\s+#?(\d{1,2})(?:st|nd|rd|th)?\s+favorite\s+([a-z0-9 '_-]+?)\s+is\s+(.+?)\.?\s*$`)

	// "What is my last favorite <topic>?"
	lastReadPattern = regexp.MustCompile(`(?i)^\s*what\s+is\s+my\s+last\s+favorite\s+([a-z0-9 '_-]+?)\s*\??\s*$`)

	// "What is my (first|...|tenth|#N|N-th) favorite <topic>?"
	rankedReadPattern = regexp.MustCompile(`(?i)^\s*what\s+is\s+my\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|#?\d{1,2}(?:st|nd|rd|th)?)\s+favorite\s+([a-z0-9 '_-]+?)\s*\??\s*$`)

	// "List/Show my favorite <topic>."
	listReadPattern = regexp.MustCompile(`(?i)^\s*(?:list|show)\s+my\s+favorite\s+([a-z0-9 '_-]+?)\s*\??\.?\s*$`)
)

// splitValues splits a comma/and-joined value list: "Japan, Italy, and New
// Zealand" -> ["Japan", "Italy", "New Zealand"].
func splitValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = regexp.MustCompile(`(?i)\s+and\s+`).ReplaceAllString(raw, ", ")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimSuffix(p, ".")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ordinalTextToRank(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if rank, ok := ordinalWords[s]; ok {
		return rank, true
	}
	if m := ordinalSuffixPattern.FindStringSubmatch(s); m != nil {
		return parseBoundedRank(m[1])
	}
	if strings.HasPrefix(s, "#") {
		return parseBoundedRank(strings.TrimPrefix(s, "#"))
	}
	return parseBoundedRank(s)
}

// DetectOverride runs the full deterministic-override pattern set against
// a raw user message and returns a fully-populated RoutingPlan when a
// strong pattern matches, or nil if the router LM must be consulted.
func DetectOverride(message string) *RoutingPlan {
	msg := strings.TrimSpace(message)

	if m := rankedWritePattern.FindStringSubmatch(msg); m != nil {
		// Write ranks are not bounded to 10 the way read ordinals are:
		// "#99" is a legal directive that the Ranked-List Engine clamps
		// to list_len+1 at apply time.
		rank, err := strconv.Atoi(m[1])
		if err == nil && rank >= 1 {
			return &RoutingPlan{
				ContentPlane:      PlaneFacts,
				Operation:         OpWrite,
				ReasoningRequired: false,
				Confidence:        1.0,
				Why:               "deterministic override: ranked favorite write",
				Source:            "override",
				FactsWriteCandidate: &FactsWriteCandidate{
					Topic:       strings.TrimSpace(m[2]),
					Value:       []string{strings.TrimSpace(strings.TrimSuffix(m[3], "."))},
					RankOrdered: true,
					Rank:        &rank,
				},
			}
		}
	}

	if m := favoriteWritePattern.FindStringSubmatch(msg); m != nil {
		return &RoutingPlan{
			ContentPlane:      PlaneFacts,
			Operation:         OpWrite,
			ReasoningRequired: false,
			Confidence:        1.0,
			Why:               "deterministic override: favorite write",
			Source:            "override",
			FactsWriteCandidate: &FactsWriteCandidate{
				Topic:       strings.TrimSpace(m[1]),
				Value:       splitValues(m[2]),
				RankOrdered: false,
			},
		}
	}

	if m := lastReadPattern.FindStringSubmatch(msg); m != nil {
		last := RankSentinelLast
		return &RoutingPlan{
			ContentPlane:      PlaneFacts,
			Operation:         OpRead,
			ReasoningRequired: false,
			Confidence:        1.0,
			Why:               "deterministic override: last favorite read",
			Source:            "override",
			FactsReadCandidate: &FactsReadCandidate{
				Topic: strings.TrimSpace(m[1]),
				Query: msg,
				Rank:  &last,
			},
		}
	}

	if m := rankedReadPattern.FindStringSubmatch(msg); m != nil {
		if rank, ok := ordinalTextToRank(m[1]); ok {
			rankStr := strconv.Itoa(rank)
			return &RoutingPlan{
				ContentPlane:      PlaneFacts,
				Operation:         OpRead,
				ReasoningRequired: false,
				Confidence:        1.0,
				Why:               "deterministic override: ranked favorite read",
				Source:            "override",
				FactsReadCandidate: &FactsReadCandidate{
					Topic: strings.TrimSpace(m[2]),
					Query: msg,
					Rank:  &rankStr,
				},
			}
		}
	}

	if m := listReadPattern.FindStringSubmatch(msg); m != nil {
		return &RoutingPlan{
			ContentPlane:      PlaneFacts,
			Operation:         OpRead,
			ReasoningRequired: false,
			Confidence:        1.0,
			Why:               "deterministic override: list favorites",
			Source:            "override",
			FactsReadCandidate: &FactsReadCandidate{
				Topic: strings.TrimSpace(m[1]),
				Query: msg,
				Rank:  nil,
			},
		}
	}

	return nil
}
