package salesim

import (
	"context"
	"fmt"
)

// TokenUsage carries the token counts reported by a generation service for a
// single exchange.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// PersonaReply is the outcome of one persona turn. Usage is nil when the
// backing implementation has no token accounting (the offline variant);
// callers must treat absent usage as zero-cost, not as an error.
type PersonaReply struct {
	Text  string
	Usage *TokenUsage
}

// PersonaProvider produces the buyer persona's next utterance given the full
// ordered conversation log. Implementations backed by a remote service may
// fail and must propagate those failures unmodified; offline implementations
// never fail. The Conversation is fully generic over which variant is wired
// in.
//
// Example usage:
//
//	provider := NewOpenAIPersonaProvider(OpenAIPersonaConfig{
//	    Client: NewOpenAIClient(os.Getenv("OPENAI_API_KEY")),
//	})
//
//	reply, err := provider.Respond(ctx, conversation.Messages())
type PersonaProvider interface {
	Respond(ctx context.Context, messages []Message) (PersonaReply, error)
}

// PersonaError represents a malformed or unusable response from a generation
// service, as opposed to a transport failure which is returned as-is.
type PersonaError struct {
	Code    int
	Message string
}

func (e *PersonaError) Error() string {
	return fmt.Sprintf("persona error (code %d): %s", e.Code, e.Message)
}
