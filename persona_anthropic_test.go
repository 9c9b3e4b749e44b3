package salesim

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnthropicClient struct {
	message *anthropic.Message
	err     error

	lastParams anthropic.MessageNewParams
}

func (f *fakeAnthropicClient) CreateMessage(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.message, nil
}

func TestAnthropicPersona_Respond(t *testing.T) {
	client := &fakeAnthropicClient{
		message: &anthropic.Message{
			Content: []anthropic.ContentBlock{
				{Type: anthropic.ContentBlockTypeText, Text: "Sounds expensive. Why?"},
			},
			Usage: anthropic.Usage{InputTokens: 50, OutputTokens: 8},
		},
	}
	provider := NewAnthropicPersonaProvider(AnthropicPersonaConfig{Client: client})

	reply, err := provider.Respond(context.Background(), []Message{
		{Role: SystemRole, Content: "You are a buyer."},
		{Role: UserRole, Content: "It's $900 a seat."},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sounds expensive. Why?", reply.Text)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, 50, reply.Usage.PromptTokens)
	assert.Equal(t, 8, reply.Usage.CompletionTokens)

	// The system message travels in the dedicated system parameter, not the
	// message list.
	assert.Len(t, client.lastParams.Messages.Value, 1)
	assert.True(t, client.lastParams.System.Present)
}

func TestAnthropicPersona_ConfiguredModelReachesRequest(t *testing.T) {
	client := &fakeAnthropicClient{
		message: &anthropic.Message{
			Content: []anthropic.ContentBlock{
				{Type: anthropic.ContentBlockTypeText, Text: "ok"},
			},
		},
	}
	provider := NewAnthropicPersonaProvider(AnthropicPersonaConfig{
		Client: client,
		Model:  anthropic.Model("claude-3-haiku-20240307"),
	})

	_, err := provider.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.NoError(t, err)
	assert.Equal(t, anthropic.Model("claude-3-haiku-20240307"), client.lastParams.Model.Value)

	// Left unset, the model falls back to the package default.
	defaulted := NewAnthropicPersonaProvider(AnthropicPersonaConfig{Client: client})
	_, err = defaulted.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnthropicModel, client.lastParams.Model.Value)
}

func TestAnthropicPersona_TransportErrorPropagatesUnmodified(t *testing.T) {
	transportErr := errors.New("overloaded")
	provider := NewAnthropicPersonaProvider(AnthropicPersonaConfig{Client: &fakeAnthropicClient{err: transportErr}})

	_, err := provider.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.Error(t, err)
	assert.Same(t, transportErr, err)
}

func TestAnthropicPersona_EmptyContentIsPersonaError(t *testing.T) {
	provider := NewAnthropicPersonaProvider(AnthropicPersonaConfig{
		Client: &fakeAnthropicClient{message: &anthropic.Message{}},
	})

	_, err := provider.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.Error(t, err)

	var personaErr *PersonaError
	require.ErrorAs(t, err, &personaErr)
	assert.Equal(t, 400, personaErr.Code)
}
