package salesim

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAIClient implements OpenAIClientProvider and records the last
// request parameters.
type fakeOpenAIClient struct {
	completion *openai.ChatCompletion
	err        error

	lastParams openai.ChatCompletionNewParams
}

func (f *fakeOpenAIClient) CreateCompletion(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func TestNewOpenAIPersonaProvider_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		config        OpenAIPersonaConfig
		expectedModel string
	}{
		{
			name:          "with specified model",
			config:        OpenAIPersonaConfig{Model: "gpt-4o"},
			expectedModel: "gpt-4o",
		},
		{
			name:          "with default model",
			config:        OpenAIPersonaConfig{},
			expectedModel: DefaultModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewOpenAIPersonaProvider(tt.config)
			assert.Equal(t, tt.expectedModel, provider.model)
		})
	}
}

func TestOpenAIPersona_Respond(t *testing.T) {
	client := &fakeOpenAIClient{
		completion: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "What does it cost?"}},
			},
			Usage: openai.CompletionUsage{PromptTokens: 37, CompletionTokens: 9},
		},
	}
	provider := NewOpenAIPersonaProvider(OpenAIPersonaConfig{Client: client, Model: "gpt-4o-mini"})

	reply, err := provider.Respond(context.Background(), []Message{
		{Role: SystemRole, Content: "You are a buyer."},
		{Role: UserRole, Content: "Hello!"},
		{Role: AssistantRole, Content: "Hi, what are you selling?"},
		{Role: UserRole, Content: "A CRM."},
	})
	require.NoError(t, err)

	assert.Equal(t, "What does it cost?", reply.Text)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, 37, reply.Usage.PromptTokens)
	assert.Equal(t, 9, reply.Usage.CompletionTokens)

	// The whole log travels with the request.
	assert.Len(t, client.lastParams.Messages.Value, 4)
	assert.Equal(t, "gpt-4o-mini", client.lastParams.Model.Value)
}

func TestOpenAIPersona_TransportErrorPropagatesUnmodified(t *testing.T) {
	transportErr := errors.New("429 too many requests")
	provider := NewOpenAIPersonaProvider(OpenAIPersonaConfig{Client: &fakeOpenAIClient{err: transportErr}})

	_, err := provider.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.Error(t, err)
	assert.Same(t, transportErr, err)
}

func TestOpenAIPersona_EmptyChoicesIsPersonaError(t *testing.T) {
	provider := NewOpenAIPersonaProvider(OpenAIPersonaConfig{
		Client: &fakeOpenAIClient{completion: &openai.ChatCompletion{}},
	})

	_, err := provider.Respond(context.Background(), []Message{{Role: UserRole, Content: "Hi"}})
	require.Error(t, err)

	var personaErr *PersonaError
	require.ErrorAs(t, err, &personaErr)
	assert.Equal(t, 400, personaErr.Code)
}
