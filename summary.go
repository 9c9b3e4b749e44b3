package salesim

import (
	"context"
	"sort"
	"strconv"

	"github.com/salesim-lab/salesim/recordstore"
)

// ConversationSummary aggregates the stored rows of one conversation for
// dashboard-style listings.
type ConversationSummary struct {
	ConversationID string
	StartedAt      string
	Exchanges      int
	TotalTokens    int
	InputCost      float64
	OutputCost     float64
	TotalCost      float64
	FirstMessage   string
}

// firstMessageLimit caps the opening-message preview length.
const firstMessageLimit = 100

// SummarizeConversations scans the record store and returns one summary per
// conversation, ordered by each conversation's first timestamp. Rows that do
// not parse as numbers contribute zero to the sums; the row still counts as
// an exchange.
func SummarizeConversations(ctx context.Context, store recordstore.Store) ([]ConversationSummary, error) {
	rows, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*ConversationSummary)
	var order []string

	for _, row := range rows {
		id := row["conversation_id"]
		summary, ok := byID[id]
		if !ok {
			summary = &ConversationSummary{
				ConversationID: id,
				StartedAt:      row["timestamp"],
				FirstMessage:   truncate(row["message"], firstMessageLimit),
			}
			byID[id] = summary
			order = append(order, id)
		}

		summary.Exchanges++
		tokens, _ := strconv.Atoi(row["total_tokens"])
		inputCost, _ := strconv.ParseFloat(row["input_cost_usd"], 64)
		outputCost, _ := strconv.ParseFloat(row["output_cost_usd"], 64)
		summary.TotalTokens += tokens
		summary.InputCost += inputCost
		summary.OutputCost += outputCost
		summary.TotalCost += inputCost + outputCost
	}

	summaries := make([]ConversationSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byID[id])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].StartedAt < summaries[j].StartedAt
	})
	return summaries, nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
