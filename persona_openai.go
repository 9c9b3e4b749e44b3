package salesim

import (
	"context"

	"github.com/openai/openai-go"
)

// OpenAIPersonaProvider is the real buyer persona: it forwards the full
// conversation log to OpenAI's chat completion API and reports the true
// token usage of each exchange. Transport and service failures propagate
// unmodified to the caller; there is no retry here.
type OpenAIPersonaProvider struct {
	client      OpenAIClientProvider
	model       string
	maxTokens   int64
	temperature float64
}

// OpenAIPersonaConfig holds configuration for the OpenAI persona.
type OpenAIPersonaConfig struct {
	// Client is the OpenAIClientProvider implementation to use.
	Client OpenAIClientProvider
	// Model specifies which OpenAI model to use (e.g. "gpt-4o-mini").
	Model string
	// MaxTokens caps the persona's reply length. Defaults to 1000.
	MaxTokens int64
	// Temperature controls reply variability. Defaults to 0.7.
	Temperature float64
}

// NewOpenAIPersonaProvider creates a persona over OpenAI's API. If no model
// is specified, it defaults to the cheap tier used for training sessions.
//
// Example usage:
//
//	provider := NewOpenAIPersonaProvider(OpenAIPersonaConfig{
//	    Client: NewOpenAIClient(os.Getenv("OPENAI_API_KEY")),
//	    Model:  "gpt-4o-mini",
//	})
func NewOpenAIPersonaProvider(config OpenAIPersonaConfig) *OpenAIPersonaProvider {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}

	return &OpenAIPersonaProvider{
		client:      config.Client,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

// convertMessages converts the conversation log to OpenAI's message format.
func (p *OpenAIPersonaProvider) convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	var converted []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case SystemRole:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case AssistantRole:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}

// Respond implements the PersonaProvider interface over OpenAI's chat
// completion API.
func (p *OpenAIPersonaProvider) Respond(ctx context.Context, messages []Message) (PersonaReply, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(p.convertMessages(messages)),
		Model:       openai.F(p.model),
		MaxTokens:   openai.Int(p.maxTokens),
		Temperature: openai.Float(p.temperature),
	}

	completion, err := p.client.CreateCompletion(ctx, params)
	if err != nil {
		return PersonaReply{}, err
	}

	if len(completion.Choices) == 0 {
		return PersonaReply{}, &PersonaError{Code: 400, Message: "no choices in response"}
	}

	return PersonaReply{
		Text: completion.Choices[0].Message.Content,
		Usage: &TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}
