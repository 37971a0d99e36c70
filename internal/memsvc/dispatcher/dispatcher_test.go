package dispatcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/memsvc/internal/memsvc/canon"
	"github.com/kittclouds/memsvc/internal/memsvc/dispatcher"
	"github.com/kittclouds/memsvc/internal/memsvc/facts"
	"github.com/kittclouds/memsvc/internal/memsvc/router"
)

const testProjectID = "11111111-1111-1111-1111-111111111111"

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	ctx := context.Background()

	store, err := facts.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	aliasStore, err := canon.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = aliasStore.Close() })

	canonicalizer, err := canon.New(ctx, aliasStore, nil, nil)
	require.NoError(t, err)

	return &dispatcher.Dispatcher{
		Facts:         store,
		Canonicalizer: canonicalizer,
		Logger:        dispatcher.NopLogger{},
	}
}

func ptr[T any](v T) *T { return &v }

func TestApplyFactsOpsWritesRankedList(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	result, err := d.ApplyFactsOps(ctx, testProjectID, "msg-1", &router.FactsWriteCandidate{
		Topic: "favorite colors",
		Value: []string{"blue"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.StoreCount)

	items, err := d.Facts.GetRankedList(ctx, testProjectID, facts.CanonicalListKey("colors"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "blue", items[0].ValueText)
}

func TestApplyFactsOpsBulkWriteMultipleValues(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	result, err := d.ApplyFactsOps(ctx, testProjectID, "msg-1", &router.FactsWriteCandidate{
		Topic: "vacation destinations",
		Value: []string{"Japan", "Italy", "New Zealand"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.StoreCount)
}

func TestExecuteFactsPlanListAllWhenNoRank(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	_, err := d.ApplyFactsOps(ctx, testProjectID, "msg-1", &router.FactsWriteCandidate{
		Topic: "board games", Value: []string{"Catan", "Azul"},
	})
	require.NoError(t, err)

	answer, err := d.ExecuteFactsPlan(ctx, testProjectID, &router.FactsReadCandidate{Topic: "board games"}, "", dispatcher.OrdinalNone)
	require.NoError(t, err)
	require.Equal(t, 2, answer.Count)
	require.True(t, answer.RankResultFound)
	require.False(t, answer.FactsEmptyValid)
}

func TestExecuteFactsPlanEmptyListIsDeterministic(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	answer, err := d.ExecuteFactsPlan(ctx, testProjectID, &router.FactsReadCandidate{
		Topic: "nonexistent topic", Rank: ptr("1"),
	}, "", dispatcher.OrdinalNone)
	require.NoError(t, err)
	require.True(t, answer.FactsEmptyValid)
	require.False(t, answer.RankResultFound)
}

func TestExecuteFactsPlanLastSentinelResolvesToMaxRank(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	_, err := d.ApplyFactsOps(ctx, testProjectID, "msg-1", &router.FactsWriteCandidate{
		Topic: "vacation destinations", Value: []string{"Japan", "Italy", "New Zealand"},
	})
	require.NoError(t, err)

	answer, err := d.ExecuteFactsPlan(ctx, testProjectID, &router.FactsReadCandidate{
		Topic: "vacation destinations", Rank: ptr(router.RankSentinelLast),
	}, "", dispatcher.OrdinalFromRouter)
	require.NoError(t, err)
	require.True(t, answer.RankResultFound)
	require.NotNil(t, answer.RankApplied)
	require.Equal(t, 3, *answer.RankApplied)
	require.Len(t, answer.Facts, 1)
	require.Equal(t, "New Zealand", answer.Facts[0].ValueText)
}

func TestExecuteFactsPlanOutOfRangeRankIsDeterministic(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	_, err := d.ApplyFactsOps(ctx, testProjectID, "msg-1", &router.FactsWriteCandidate{
		Topic: "vacation destinations", Value: []string{"Japan"},
	})
	require.NoError(t, err)

	answer, err := d.ExecuteFactsPlan(ctx, testProjectID, &router.FactsReadCandidate{
		Topic: "vacation destinations", Rank: ptr("5"),
	}, "", dispatcher.OrdinalFromRouter)
	require.NoError(t, err)
	require.False(t, answer.RankResultFound)
	require.Equal(t, 1, answer.MaxAvailableRank)
}

// fakeRouter implements dispatcher.RouterLM with a scripted reply queue.
type fakeRouter struct {
	replies []string
	calls   int
}

func (f *fakeRouter) Route(_ context.Context, _, _ string) (string, error) {
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

func TestDispatchUsesDeterministicOverrideBeforeCallingRouter(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	d.Router = &fakeRouter{replies: []string{`{"content_plane":"chat","operation":"none"}`}}

	result, err := d.Dispatch(ctx, testProjectID, "msg-1", "My favorite color is blue", nil)
	require.NoError(t, err)
	require.Equal(t, router.PlaneFacts, result.Plan.ContentPlane)
	require.Equal(t, router.OpWrite, result.Plan.Operation)
	require.NotNil(t, result.ApplyResult)
	require.Equal(t, 0, d.Router.(*fakeRouter).calls, "override should short-circuit before any router call")
}

func TestDispatchRetriesOnceOnSchemaInvalidThenSucceeds(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	d.Router = &fakeRouter{replies: []string{
		`not json at all`,
		`{"content_plane":"chat","operation":"none","confidence":0.9}`,
	}}

	result, err := d.Dispatch(ctx, testProjectID, "msg-1", "tell me something unrelated to any override pattern", nil)
	require.NoError(t, err)
	require.Equal(t, router.PlaneChat, result.Plan.ContentPlane)
	require.Equal(t, 2, d.Router.(*fakeRouter).calls)
}

func TestDispatchFallsBackToChatWhenRouterUnavailable(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	d.Router = nil

	result, err := d.Dispatch(ctx, testProjectID, "msg-1", "tell me something unrelated to any override pattern", nil)
	require.NoError(t, err)
	require.Equal(t, router.PlaneChat, result.Plan.ContentPlane)
}
