package salesim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/salesim-lab/salesim/observability"
	"github.com/salesim-lab/salesim/recordstore"
)

// ErrConversationNotFound is returned by Load when the record store holds no
// rows for the requested conversation identifier. It is a non-fatal signal:
// the session simply proceeds as a new, empty conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// conversationIDLayout produces fixed-width identifiers that sort
// chronologically as plain strings.
const conversationIDLayout = "20060102150405"

// NewConversationID derives a conversation identifier from the current UTC
// time.
func NewConversationID() string {
	return time.Now().UTC().Format(conversationIDLayout)
}

// Conversation owns the ordered message log of one role-play session. It
// mediates every exchange with the persona provider, keeps running token and
// cost totals, persists each completed exchange to the record store, and can
// reconstruct a prior session from stored rows.
//
// A Conversation is driven by a single caller at a time; it starts no
// background work and holds no shared mutable state besides the record
// store, which it only appends to and queries.
type Conversation struct {
	provider PersonaProvider
	store    recordstore.Store
	prices   *PriceTable
	logger   observability.Logger

	id    string
	model string

	messages    []Message
	totalTokens int
	totalCost   float64

	pendingSystem string
	resumeID      string
}

// SendResult is the outcome of one exchange: the persona's reply and the
// cost accounting derived from the response's usage metadata. Usage is
// all-zero when the provider reports none.
type SendResult struct {
	Reply string
	Usage UsageRecord
}

// UsageStats is a read-only snapshot of a conversation's running totals.
type UsageStats struct {
	TotalTokens int
	TotalCost   float64
	Model       string
}

// ConversationOption configures a Conversation during construction.
type ConversationOption func(*Conversation)

// WithModel sets the model identifier forwarded to the accountant. Unknown
// models degrade to the default price tier.
func WithModel(model string) ConversationOption {
	return func(c *Conversation) {
		c.model = model
	}
}

// WithSystemMessage seeds a new conversation with a system message defining
// the persona's behaviour. When combined with WithConversationID and the
// identifier resolves to stored rows, the reconstructed log wins; when the
// identifier resolves to nothing, the session starts empty and the system
// message is intentionally not applied either, so that resumed identifiers
// never change observable conversation content.
func WithSystemMessage(text string) ConversationOption {
	return func(c *Conversation) {
		c.pendingSystem = text
	}
}

// WithConversationID resumes the conversation stored under the identifier.
// If the store has no rows for it, a warning is logged and the session
// proceeds as a new conversation under that identifier.
func WithConversationID(id string) ConversationOption {
	return func(c *Conversation) {
		c.resumeID = id
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger observability.Logger) ConversationOption {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithPriceTable overrides the built-in price table.
func WithPriceTable(table *PriceTable) ConversationOption {
	return func(c *Conversation) {
		c.prices = table
	}
}

// NewConversation creates a session over the given persona provider and
// record store.
//
// Example usage:
//
//	store := recordstore.NewCSVStore("data/conversations.csv", logger)
//	conversation := NewConversation(provider, store,
//	    WithModel("gpt-4o-mini"),
//	    WithSystemMessage("You are a skeptical buyer."),
//	)
//
//	result, err := conversation.Send(ctx, "Hi, interested?")
func NewConversation(provider PersonaProvider, store recordstore.Store, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		provider: provider,
		store:    store,
		prices:   NewPriceTable(),
		logger:   observability.NewNullLogger(),
		model:    DefaultModel,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.resumeID != "" {
		c.id = c.resumeID
		if err := c.Load(context.Background(), c.resumeID); err != nil {
			if errors.Is(err, ErrConversationNotFound) {
				c.logger.WithFields(map[string]interface{}{"conversation_id": c.resumeID}).
					Warn("no stored rows for conversation, starting fresh")
			} else {
				c.logger.WithErr(err).Warn("failed to reconstruct conversation, starting fresh")
			}
		}
		return c
	}

	c.id = NewConversationID()
	if c.pendingSystem != "" {
		c.messages = append(c.messages, Message{Role: SystemRole, Content: c.pendingSystem})
	}
	return c
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Send appends the seller's utterance, asks the persona for the next buyer
// turn with the entire log as context, updates the running totals and
// persists the completed exchange as one row.
//
// If the provider fails, the error is returned unmodified: the user turn
// stays appended, no assistant turn is added, totals do not move and no row
// is written. Calling Send again afterwards appends a second user turn
// rather than replacing the first; retries are the caller's decision.
func (c *Conversation) Send(ctx context.Context, utterance string) (SendResult, error) {
	c.messages = append(c.messages, Message{Role: UserRole, Content: utterance})

	reply, err := c.provider.Respond(ctx, c.Messages())
	if err != nil {
		return SendResult{}, err
	}

	c.messages = append(c.messages, Message{Role: AssistantRole, Content: reply.Text})

	var promptTokens, completionTokens int
	if reply.Usage != nil {
		promptTokens = reply.Usage.PromptTokens
		completionTokens = reply.Usage.CompletionTokens
	}
	usage := c.prices.Cost(c.model, promptTokens, completionTokens)
	c.totalTokens += usage.TotalTokens
	c.totalCost += usage.TotalCost

	row := recordstore.Record{
		"conversation_id": c.id,
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"total_tokens":    strconv.Itoa(usage.TotalTokens),
		"input_cost_usd":  strconv.FormatFloat(usage.InputCost, 'f', -1, 64),
		"output_cost_usd": strconv.FormatFloat(usage.OutputCost, 'f', -1, 64),
		"message":         utterance,
		"response":        reply.Text,
	}
	if err := c.store.Append(ctx, row); err != nil {
		c.logger.WithErr(err).
			WithFields(map[string]interface{}{"conversation_id": c.id}).
			Warn("failed to persist exchange")
	}

	return SendResult{Reply: reply.Text, Usage: usage}, nil
}

// Messages returns a defensive copy of the ordered message log.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Load reconstructs the session from the rows stored under the identifier,
// replacing the in-memory log and totals. Rows are folded in timestamp
// order; rows with equal timestamps keep their store scan order. When no
// rows match, the session is left fresh and empty and
// ErrConversationNotFound is returned.
func (c *Conversation) Load(ctx context.Context, id string) error {
	c.messages = nil
	c.totalTokens = 0
	c.totalCost = 0
	c.id = id

	rows, err := c.store.Query(ctx, map[string]string{"conversation_id": id})
	if err != nil {
		return fmt.Errorf("failed to query conversation %q: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("conversation %q: %w", id, ErrConversationNotFound)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return parseRowTime(rows[i]).Before(parseRowTime(rows[j]))
	})

	for _, row := range rows {
		c.messages = append(c.messages,
			Message{Role: UserRole, Content: row["message"]},
			Message{Role: AssistantRole, Content: row["response"]},
		)
		tokens, _ := strconv.Atoi(row["total_tokens"])
		inputCost, _ := strconv.ParseFloat(row["input_cost_usd"], 64)
		outputCost, _ := strconv.ParseFloat(row["output_cost_usd"], 64)
		c.totalTokens += tokens
		c.totalCost += inputCost + outputCost
	}

	c.logger.WithFields(map[string]interface{}{
		"conversation_id": id,
		"exchanges":       len(rows),
	}).Info("conversation reconstructed")
	return nil
}

// parseRowTime reads the row's timestamp; unparseable values sort first and
// keep their scan order.
func parseRowTime(row recordstore.Record) time.Time {
	t, err := time.Parse(time.RFC3339Nano, row["timestamp"])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clear truncates the in-memory log. With keepSystem, a leading system
// message survives as the only entry. Running totals and persisted rows are
// untouched: clearing the context does not undo its accounting or history.
func (c *Conversation) Clear(keepSystem bool) {
	if keepSystem && len(c.messages) > 0 && c.messages[0].Role == SystemRole {
		c.messages = c.messages[:1]
		return
	}
	c.messages = nil
}

// UsageStats returns the cumulative token and cost totals for the session.
func (c *Conversation) UsageStats() UsageStats {
	return UsageStats{
		TotalTokens: c.totalTokens,
		TotalCost:   c.totalCost,
		Model:       c.model,
	}
}
