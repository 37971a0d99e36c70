package dispatcher

import (
	"context"
	"fmt"

	"github.com/kittclouds/memsvc/internal/memsvc/router"
	"github.com/kittclouds/memsvc/internal/memsvc/vectorindex"
)

// ExecuteIndexPlan answers an index/search request: embed the
// query, search the in-memory Vector Index scoped to the requesting
// project's chat sources plus any explicitly linked file sources, and
// fall back to a brute-force scan of the durable embedding table when the
// in-memory index is unavailable or empty.
func (d *Dispatcher) ExecuteIndexPlan(ctx context.Context, projectID string, candidate *router.IndexCandidate, linkedFileSourceIDs map[string]bool) ([]vectorindex.Result, error) {
	if candidate == nil {
		return nil, fmt.Errorf("execute_index_plan: nil index_candidate")
	}
	if d.Embedder == nil {
		return nil, fmt.Errorf("execute_index_plan: no query embedder configured")
	}

	queryVector, err := d.Embedder.EmbedQuery(ctx, candidate.Query)
	if err != nil {
		return nil, fmt.Errorf("execute_index_plan: embed query: %w", err)
	}

	const defaultTopK = 5
	params := vectorindex.SearchParams{
		QueryVector:     queryVector,
		TopK:            defaultTopK,
		FilterProjectID: projectID,
		FilterSourceIDs: linkedFileSourceIDs,
	}

	if d.Index != nil && d.Index.Len() > 0 {
		return d.Index.Search(params), nil
	}

	// In-memory index unavailable or empty: fall back to the durable
	// embedding table with identical filtering semantics.
	if d.Logger != nil {
		d.Logger.Warn("vector index unavailable, falling back to brute-force scan", map[string]any{"project_id": projectID})
	}
	if d.IndexFallback == nil {
		return nil, fmt.Errorf("execute_index_plan: index empty and no durable fallback configured")
	}
	return vectorindex.BruteForceSearch(ctx, d.IndexFallback, queryVector, params)
}
