package salesim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesim-lab/salesim/recordstore"
)

func TestSummarizeConversations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rows := []recordstore.Record{
		{"conversation_id": "b", "timestamp": "2025-03-02T10:00:00Z", "total_tokens": "40", "input_cost_usd": "0.004", "output_cost_usd": "0.006", "message": "second conversation opener", "response": "r"},
		{"conversation_id": "a", "timestamp": "2025-03-01T09:00:00Z", "total_tokens": "10", "input_cost_usd": "0.001", "output_cost_usd": "0.002", "message": "first conversation opener", "response": "r"},
		{"conversation_id": "a", "timestamp": "2025-03-01T09:05:00Z", "total_tokens": "20", "input_cost_usd": "0.003", "output_cost_usd": "0.004", "message": "follow-up", "response": "r"},
	}
	require.NoError(t, store.AppendMany(ctx, rows))

	summaries, err := SummarizeConversations(ctx, store)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Ordered by first timestamp, not by store scan order.
	assert.Equal(t, "a", summaries[0].ConversationID)
	assert.Equal(t, "b", summaries[1].ConversationID)

	first := summaries[0]
	assert.Equal(t, 2, first.Exchanges)
	assert.Equal(t, 30, first.TotalTokens)
	assert.InDelta(t, 0.004, first.InputCost, 1e-9)
	assert.InDelta(t, 0.006, first.OutputCost, 1e-9)
	assert.InDelta(t, 0.010, first.TotalCost, 1e-9)
	assert.Equal(t, "first conversation opener", first.FirstMessage)
	assert.Equal(t, "2025-03-01T09:00:00Z", first.StartedAt)
}

func TestSummarizeConversations_EmptyStore(t *testing.T) {
	summaries, err := SummarizeConversations(context.Background(), newTestStore(t))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSummarizeConversations_TruncatesLongFirstMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	long := strings.Repeat("x", 150)
	require.NoError(t, store.Append(ctx, recordstore.Record{
		"conversation_id": "c",
		"timestamp":       "2025-03-01T09:00:00Z",
		"total_tokens":    "1",
		"input_cost_usd":  "0",
		"output_cost_usd": "0",
		"message":         long,
		"response":        "r",
	}))

	summaries, err := SummarizeConversations(ctx, store)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Len(t, summaries[0].FirstMessage, firstMessageLimit+len("..."))
	assert.True(t, strings.HasSuffix(summaries[0].FirstMessage, "..."))
}
