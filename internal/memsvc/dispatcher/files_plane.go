package dispatcher

import (
	"context"
	"fmt"

	"github.com/kittclouds/memsvc/internal/memsvc/router"
)

// defaultFilesLimit bounds how many citations a files/search answer
// returns when the plan doesn't otherwise constrain it.
const defaultFilesLimit = 5

// ExecuteFilesPlan answers a files/search request against the project's
// explicitly linked file sources. Parsing/extraction of the
// files themselves is out of scope; this plane only
// searches and cites.
func (d *Dispatcher) ExecuteFilesPlan(ctx context.Context, projectID string, candidate *router.FilesCandidate) ([]FileHit, error) {
	if candidate == nil {
		return nil, fmt.Errorf("execute_files_plan: nil files_candidate")
	}
	if d.Files == nil {
		return nil, fmt.Errorf("execute_files_plan: no files searcher configured")
	}
	return d.Files.SearchFiles(ctx, projectID, candidate.Query, candidate.PathHint, defaultFilesLimit)
}
