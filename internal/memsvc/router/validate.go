package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
)

// stripCodeFence removes a surrounding markdown code fence. LLM
// responses routinely wrap JSON in ```json ... ``` fences even when a
// JSON response_format is requested.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

var validPlanes = map[ContentPlane]bool{PlaneFacts: true, PlaneIndex: true, PlaneFiles: true, PlaneChat: true}
var validOps = map[Operation]bool{OpWrite: true, OpRead: true, OpSearch: true, OpNone: true}

// ParsePlan parses and validates a raw LLM response against the
// RoutingPlan schema. It never panics; invalid JSON or an invalid enum
// both surface as errs.ErrRouterSchemaInvalid so the caller can apply
// the one corrective retry policy.
func ParsePlan(raw string) (*RoutingPlan, error) {
	cleaned := strings.TrimSpace(stripCodeFence(strings.TrimSpace(raw)))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty router response", errs.ErrRouterSchemaInvalid)
	}

	var plan RoutingPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRouterSchemaInvalid, err)
	}

	if err := Validate(&plan); err != nil {
		return nil, err
	}
	plan.Source = "router_lm"
	return &plan, nil
}

// Validate enforces the RoutingPlan schema invariants: valid
// plane/operation enums, confidence in [0,1], rank bounded to [1,10]
// when present and numeric, and that the candidate matching
// content_plane is populated.
func Validate(p *RoutingPlan) error {
	if !validPlanes[p.ContentPlane] {
		return fmt.Errorf("%w: invalid content_plane %q", errs.ErrRouterSchemaInvalid, p.ContentPlane)
	}
	if !validOps[p.Operation] {
		return fmt.Errorf("%w: invalid operation %q", errs.ErrRouterSchemaInvalid, p.Operation)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", errs.ErrRouterSchemaInvalid, p.Confidence)
	}

	switch p.ContentPlane {
	case PlaneFacts:
		if p.Operation == OpWrite && p.FactsWriteCandidate == nil {
			return fmt.Errorf("%w: facts/write requires facts_write_candidate", errs.ErrRouterSchemaInvalid)
		}
		if p.Operation == OpRead && p.FactsReadCandidate == nil {
			return fmt.Errorf("%w: facts/read requires facts_read_candidate", errs.ErrRouterSchemaInvalid)
		}
	case PlaneIndex:
		if p.Operation == OpSearch && p.IndexCandidate == nil {
			return fmt.Errorf("%w: index/search requires index_candidate", errs.ErrRouterSchemaInvalid)
		}
	case PlaneFiles:
		if p.Operation == OpSearch && p.FilesCandidate == nil {
			return fmt.Errorf("%w: files/search requires files_candidate", errs.ErrRouterSchemaInvalid)
		}
	}

	if c := p.FactsReadCandidate; c != nil && c.Rank != nil {
		if *c.Rank != RankSentinelLast {
			if rank, ok := parseBoundedRank(*c.Rank); !ok {
				return fmt.Errorf("%w: facts_read_candidate.rank %q out of [1,%d]", errs.ErrRouterSchemaInvalid, *c.Rank, MaxOrdinalRank)
			} else {
				_ = rank
			}
		}
	}
	return nil
}

// FallbackPlan is the content_plane=chat, operation=none plan returned
// when the router LM is unavailable or never produces a valid schema
// after the one corrective retry.
func FallbackPlan(why string) *RoutingPlan {
	return &RoutingPlan{
		ContentPlane:      PlaneChat,
		Operation:         OpNone,
		ReasoningRequired: false,
		Confidence:        0,
		Why:               why,
		Source:            "fallback",
	}
}
