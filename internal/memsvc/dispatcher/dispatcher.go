package dispatcher

import (
	"context"
	"fmt"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
	"github.com/kittclouds/memsvc/internal/memsvc/router"
)

// Dispatch is the Router & Dispatcher's single entry point: acquire a plan — a deterministic override if one
// matches, otherwise one call to the router LM with a single corrective
// retry on schema failure — then execute the matching content plane.
// Enforcement guarantee: a deterministic override or a
// resolved facts/index/files answer is NEVER second-guessed by a
// generative fallback; only content_plane=chat ever reaches the chat
// plane, and this function does not implement chat generation itself
// (chat responses are produced by the caller's own conversational
// model once Dispatch reports plane=chat).
func (d *Dispatcher) Dispatch(ctx context.Context, projectID, messageUUID, rawMessage string, linkedFileSourceIDs map[string]bool) (*DispatchResult, error) {
	plan, ordinalSource, err := d.acquirePlan(ctx, rawMessage)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Plan: plan}

	switch plan.ContentPlane {
	case router.PlaneFacts:
		switch plan.Operation {
		case router.OpWrite:
			applyResult, err := d.ApplyFactsOps(ctx, projectID, messageUUID, plan.FactsWriteCandidate)
			if err != nil {
				return nil, err
			}
			result.ApplyResult = applyResult
		case router.OpRead:
			if plan.FactsReadCandidate != nil && plan.FactsReadCandidate.Rank != nil &&
				*plan.FactsReadCandidate.Rank == "" {
				return nil, fmt.Errorf("%w: empty facts_read_candidate.rank", errs.ErrRouterSchemaInvalid)
			}
			answer, err := d.ExecuteFactsPlan(ctx, projectID, plan.FactsReadCandidate, messageUUID, ordinalSource)
			if err != nil {
				return nil, err
			}
			result.FactsResult = answer
		default:
			return nil, fmt.Errorf("%w: facts plane requires write or read operation, got %q", errs.ErrRouterSchemaInvalid, plan.Operation)
		}

	case router.PlaneIndex:
		if plan.Operation != router.OpSearch {
			return nil, fmt.Errorf("%w: index plane requires search operation, got %q", errs.ErrRouterSchemaInvalid, plan.Operation)
		}
		hits, err := d.ExecuteIndexPlan(ctx, projectID, plan.IndexCandidate, linkedFileSourceIDs)
		if err != nil {
			return nil, err
		}
		result.IndexResult = hits

	case router.PlaneFiles:
		if plan.Operation != router.OpSearch {
			return nil, fmt.Errorf("%w: files plane requires search operation, got %q", errs.ErrRouterSchemaInvalid, plan.Operation)
		}
		hits, err := d.ExecuteFilesPlan(ctx, projectID, plan.FilesCandidate)
		if err != nil {
			return nil, err
		}
		result.FilesResult = hits

	case router.PlaneChat:
		// Nothing to execute here: the caller's conversational model
		// handles plane=chat.

	default:
		return nil, fmt.Errorf("%w: unknown content_plane %q", errs.ErrRouterSchemaInvalid, plan.ContentPlane)
	}

	return result, nil
}

// acquirePlan implements acquisition order: deterministic
// override first, then the router LM with exactly one corrective retry
// on schema failure, falling back to content_plane=chat when the LM is
// unavailable or still fails schema validation after the retry. It also runs post-parse
// ordinal detection and reports where a rank ultimately came from.
func (d *Dispatcher) acquirePlan(ctx context.Context, rawMessage string) (*router.RoutingPlan, OrdinalParseSource, error) {
	if plan := router.DetectOverride(rawMessage); plan != nil {
		src := OrdinalNone
		if plan.ContentPlane == router.PlaneFacts && plan.Operation == router.OpRead &&
			plan.FactsReadCandidate != nil && plan.FactsReadCandidate.Rank != nil {
			src = OrdinalFromRouter
		}
		return plan, src, nil
	}

	plan, err := d.callRouterWithRetry(ctx, rawMessage)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("router unavailable, falling back to chat plane", map[string]any{"error": err.Error()})
		}
		return router.FallbackPlan(err.Error()), OrdinalNone, nil
	}

	ordinalSource := OrdinalNone
	if plan.ContentPlane == router.PlaneFacts && plan.Operation == router.OpRead && plan.FactsReadCandidate != nil {
		hadRank := plan.FactsReadCandidate.Rank != nil
		router.ApplyPostParseRankDetection(plan, rawMessage)
		if plan.FactsReadCandidate.Rank != nil {
			if hadRank {
				ordinalSource = OrdinalFromRouter
			} else {
				ordinalSource = OrdinalFromPlanner
			}
		}
	}

	return plan, ordinalSource, nil
}

// callRouterWithRetry calls the router LM once, and on a schema-invalid
// response retries exactly once with a corrective follow-up before
// giving up.
func (d *Dispatcher) callRouterWithRetry(ctx context.Context, rawMessage string) (*router.RoutingPlan, error) {
	if d.Router == nil {
		return nil, fmt.Errorf("%w: no router configured", errs.ErrRouterUnavailable)
	}

	raw, err := d.Router.Route(ctx, d.SystemPrompt, rawMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRouterUnavailable, err)
	}
	plan, parseErr := router.ParsePlan(raw)
	if parseErr == nil {
		return plan, nil
	}

	correctivePrompt := d.SystemPrompt + "\n\nYour previous response did not match the required JSON schema. Respond again with ONLY valid JSON matching the schema."
	raw, err = d.Router.Route(ctx, correctivePrompt, rawMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRouterUnavailable, err)
	}
	plan, parseErr = router.ParsePlan(raw)
	if parseErr != nil {
		return nil, parseErr
	}
	return plan, nil
}
