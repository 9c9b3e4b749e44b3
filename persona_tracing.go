package salesim

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// TracingPersonaProvider implements the decorator pattern for tracing. It
// wraps any PersonaProvider and records one span per exchange.
type TracingPersonaProvider struct {
	provider PersonaProvider
}

// NewTracingPersonaProvider creates a new tracing decorator for any
// PersonaProvider.
func NewTracingPersonaProvider(provider PersonaProvider) *TracingPersonaProvider {
	return &TracingPersonaProvider{
		provider: provider,
	}
}

// Respond implements the PersonaProvider interface with added tracing.
func (t *TracingPersonaProvider) Respond(ctx context.Context, messages []Message) (PersonaReply, error) {
	ctx, span := StartSpan(ctx, "PersonaProvider.Respond")
	defer span.End()

	startTime := time.Now()

	reply, err := t.provider.Respond(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return PersonaReply{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.Int("message_count", len(messages)),
		attribute.Float64("completion_time", time.Since(startTime).Seconds()),
	}
	if reply.Usage != nil {
		attrs = append(attrs,
			attribute.Int("prompt_tokens", reply.Usage.PromptTokens),
			attribute.Int("completion_tokens", reply.Usage.CompletionTokens),
		)
	}
	span.SetAttributes(attrs...)

	return reply, nil
}
