// Package salesim provides the conversation engine for a sales role-play
// training tool: a human seller talks to a simulated buyer persona backed by
// a text-generation service, while the library tracks context, token usage,
// cost and durable conversation history.
package salesim

// MessageRole identifies the author of a conversation turn.
type MessageRole string

const (
	// SystemRole sets the persona's behaviour. At most one system message is
	// allowed per conversation and it always occupies the first position.
	SystemRole MessageRole = "system"
	// UserRole marks a turn written by the human seller.
	UserRole MessageRole = "user"
	// AssistantRole marks a turn produced by the buyer persona.
	AssistantRole MessageRole = "assistant"
)

// Message is a single turn in a conversation log. The ordered sequence of
// messages is exactly the context sent to the generation service, so order
// is semantically significant.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
