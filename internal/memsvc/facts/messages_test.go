package facts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertChatMessageMintsStableUUID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.UpsertChatMessage(ctx, ChatMessage{
		ProjectID: testProjectID,
		ChatID:    "chat-1",
		MessageID: "m-1",
		Role:      "user",
		Content:   "My favorite colors are red and blue.",
		Timestamp: 1000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Re-submitting the same (project, chat, message) returns the
	// original UUID and refreshes the mutable fields in place.
	second, err := s.UpsertChatMessage(ctx, ChatMessage{
		ProjectID: testProjectID,
		ChatID:    "chat-1",
		MessageID: "m-1",
		Role:      "user",
		Content:   "My favorite colors are red, blue and green.",
		Timestamp: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, first, second)

	m, err := s.GetChatMessage(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "My favorite colors are red, blue and green.", m.Content)
	require.EqualValues(t, 2000, m.Timestamp)

	// A different message id in the same chat gets its own UUID.
	third, err := s.UpsertChatMessage(ctx, ChatMessage{
		ProjectID: testProjectID,
		ChatID:    "chat-1",
		MessageID: "m-2",
		Role:      "assistant",
		Content:   "Noted.",
		Timestamp: 3000,
	})
	require.NoError(t, err)
	require.NotEqual(t, first, third)
}

func TestUpsertChatMessageRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertChatMessage(ctx, ChatMessage{ProjectID: "not-a-uuid", ChatID: "c", MessageID: "m"})
	require.Error(t, err)

	_, err = s.UpsertChatMessage(ctx, ChatMessage{ProjectID: testProjectID, ChatID: "", MessageID: "m"})
	require.Error(t, err)
}

func TestUpsertChatMessageHonorsCallerUUID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.UpsertChatMessage(ctx, ChatMessage{
		MessageUUID: "33333333-3333-3333-3333-333333333333",
		ProjectID:   testProjectID,
		ChatID:      "chat-1",
		MessageID:   "m-1",
		Role:        "user",
		Content:     "hello",
	})
	require.NoError(t, err)
	require.Equal(t, "33333333-3333-3333-3333-333333333333", got)
}
