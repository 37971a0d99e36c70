// Package dispatcher implements plane execution: the
// deterministic-override-before-LM enforcement guarantees, "last" rank
// sentinel resolution, and the apply-facts-ops / execute-facts-plan
// operation surface. Plan *acquisition* (schema, deterministic
// pattern matching, ordinal detection) lives in package router; this
// package consumes router.RoutingPlan and drives the Fact Store,
// Ranked-List Engine (via facts.Store.BulkTransaction), Canonicalizer,
// and Vector Index to produce an answer.
package dispatcher

import (
	"context"

	"github.com/kittclouds/memsvc/internal/memsvc/canon"
	"github.com/kittclouds/memsvc/internal/memsvc/facts"
	"github.com/kittclouds/memsvc/internal/memsvc/router"
	"github.com/kittclouds/memsvc/internal/memsvc/vectorindex"
)

// OrdinalParseSource matches FactsAnswer.ordinal_parse_source.
type OrdinalParseSource string

const (
	OrdinalFromRouter  OrdinalParseSource = "router"
	OrdinalFromPlanner OrdinalParseSource = "planner"
	OrdinalNone        OrdinalParseSource = "none"
)

// FactsAnswer is the structured result of a facts/read dispatch.
type FactsAnswer struct {
	Facts              []facts.Fact
	Count              int
	CanonicalKeys      []string
	RankApplied        *int
	RankResultFound    bool
	OrdinalParseSource OrdinalParseSource
	MaxAvailableRank   int
	FastPath           string // "facts_retrieval" when resolved deterministically
	FactsEmptyValid    bool
}

// RouterLM is the small-LM surface the Dispatcher calls when no
// deterministic override matches. Implemented
// by llmclient.RouterClient; kept as a local interface so this package
// never imports the HTTP transport.
type RouterLM interface {
	Route(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// IndexSearcher is the in-memory Vector Index surface the index plane
// searches against.
type IndexSearcher interface {
	Search(params vectorindex.SearchParams) []vectorindex.Result
	Len() int
}

// FilesSearcher is the external file-corpus search surface for the files
// content plane. The core only needs enough to answer a
// files/search request with citations; extraction/parsing is out of
// scope.
type FilesSearcher interface {
	SearchFiles(ctx context.Context, projectID, query string, pathHint string, limit int) ([]FileHit, error)
}

// FileHit is one files-plane search result.
type FileHit struct {
	FilePath string
	Snippet  string
	Score    float64
}

// Dispatcher wires every component the content-plane router needs.
type Dispatcher struct {
	Facts         *facts.Store
	Canonicalizer *canon.Canonicalizer
	Router        RouterLM
	SystemPrompt  string
	Index         IndexSearcher
	IndexFallback vectorindex.DurableSource
	Embedder      QueryEmbedder
	Files         FilesSearcher
	Logger        Logger
}

// QueryEmbedder is the embed_query surface the index plane uses. Implemented by llmclient.EmbeddingClient / llmclient.FakeEmbedder.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Logger is the minimal structured-logging surface the Dispatcher uses
// for the once-per-minute router-unavailable rate limiting and
// general request/job logging. Satisfied by a zerolog.Logger wrapper
// (internal/memsvc/telemetry) or a no-op in tests.
type Logger interface {
	Warn(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
}

// NopLogger discards everything; used by tests and as the zero value.
type NopLogger struct{}

func (NopLogger) Warn(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any) {}

// DispatchResult is the outcome of one full Dispatch call: which plane
// ran and its typed result. Plan is always set; at most one of the
// result fields is set, and none is for the chat plane.
type DispatchResult struct {
	Plan        *router.RoutingPlan
	FactsResult *FactsAnswer       // facts/read
	ApplyResult *facts.ApplyResult // facts/write
	IndexResult []vectorindex.Result
	FilesResult []FileHit
}
