package transcript

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLoadUnknownThreadReturnsEmpty(t *testing.T) {
	s := NewMemoryStore()
	msgs, err := s.LoadThreadHistory(context.Background(), "target-1", "thread-1", "proj-1")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestMemoryStoreSaveThenLoadRoundTripsMessageUUID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	want := []Message{
		{MessageUUID: "uuid-1", Role: "user", Content: "hello", Timestamp: 1},
		{MessageUUID: "uuid-2", Role: "assistant", Content: "hi there", Timestamp: 2},
	}
	require.NoError(t, s.SaveThreadHistory(ctx, "target-1", "thread-1", "proj-1", want))

	got, err := s.LoadThreadHistory(ctx, "target-1", "thread-1", "proj-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMemoryStoreIsolatesByProjectAndThread(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveThreadHistory(ctx, "t", "thread-1", "proj-a", []Message{{MessageUUID: "a"}}))
	require.NoError(t, s.SaveThreadHistory(ctx, "t", "thread-1", "proj-b", []Message{{MessageUUID: "b"}}))

	a, err := s.LoadThreadHistory(ctx, "t", "thread-1", "proj-a")
	require.NoError(t, err)
	require.Equal(t, "a", a[0].MessageUUID)

	b, err := s.LoadThreadHistory(ctx, "t", "thread-1", "proj-b")
	require.NoError(t, err)
	require.Equal(t, "b", b[0].MessageUUID)
}

func TestMemoryStoreLoadReturnsDefensiveCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveThreadHistory(ctx, "t", "thread-1", "proj-a", []Message{{MessageUUID: "a", Content: "original"}}))

	loaded, err := s.LoadThreadHistory(ctx, "t", "thread-1", "proj-a")
	require.NoError(t, err)
	loaded[0].Content = "mutated"

	reloaded, err := s.LoadThreadHistory(ctx, "t", "thread-1", "proj-a")
	require.NoError(t, err)
	require.Equal(t, "original", reloaded[0].Content)
}
