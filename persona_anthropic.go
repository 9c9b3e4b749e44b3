package salesim

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClientProvider abstracts the message operation used by the
// Anthropic-backed persona.
type AnthropicClientProvider interface {
	// CreateMessage creates a new message using Anthropic's API.
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// AnthropicClient implements the AnthropicClientProvider interface using
// Anthropic's official SDK.
type AnthropicClient struct {
	messages *anthropic.MessageService
}

// NewAnthropicClient creates a new instance of AnthropicClient with the
// provided API key.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		messages: client.Messages,
	}
}

// CreateMessage implements the AnthropicClientProvider interface using the
// Anthropic client.
func (c *AnthropicClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.messages.New(ctx, params)
}

// DefaultAnthropicModel is used when an Anthropic persona is configured
// without an explicit model.
const DefaultAnthropicModel = anthropic.ModelClaude_3_5_Sonnet_20240620

// AnthropicPersonaProvider is a second real buyer persona, backed by
// Anthropic's Claude models. It satisfies the same PersonaProvider contract
// as the OpenAI variant; the conversation layer cannot tell them apart.
type AnthropicPersonaProvider struct {
	client      AnthropicClientProvider
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// AnthropicPersonaConfig holds the configuration options for creating an
// Anthropic persona.
type AnthropicPersonaConfig struct {
	// Client is the AnthropicClientProvider implementation to use.
	Client AnthropicClientProvider
	// Model specifies which Anthropic model to use.
	Model anthropic.Model
	// MaxTokens caps the persona's reply length. Defaults to 1024.
	MaxTokens int64
	// Temperature controls reply variability. Defaults to 0.7.
	Temperature float64
}

// NewAnthropicPersonaProvider creates a persona over Anthropic's API. If no
// model is specified, it defaults to Claude 3.5 Sonnet.
//
// Example usage:
//
//	client := NewAnthropicClient("your-api-key")
//	provider := NewAnthropicPersonaProvider(AnthropicPersonaConfig{
//	    Client: client,
//	})
func NewAnthropicPersonaProvider(config AnthropicPersonaConfig) *AnthropicPersonaProvider {
	if config.Model == "" {
		config.Model = DefaultAnthropicModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}

	return &AnthropicPersonaProvider{
		client:      config.Client,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

// Respond implements the PersonaProvider interface over Anthropic's API.
// System messages are carried through Anthropic's dedicated system
// parameter rather than the message list.
func (p *AnthropicPersonaProvider) Respond(ctx context.Context, messages []Message) (PersonaReply, error) {
	var (
		converted     []anthropic.MessageParam
		systemMessage string
	)
	for _, msg := range messages {
		switch msg.Role {
		case SystemRole:
			systemMessage = msg.Content
		case AssistantRole:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(p.model),
		Messages:    anthropic.F(converted),
		MaxTokens:   anthropic.F(p.maxTokens),
		Temperature: anthropic.Float(p.temperature),
	}
	if systemMessage != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(systemMessage),
		})
	}

	message, err := p.client.CreateMessage(ctx, params)
	if err != nil {
		return PersonaReply{}, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return PersonaReply{}, &PersonaError{Code: 400, Message: "no text content in response"}
	}

	return PersonaReply{
		Text: text.String(),
		Usage: &TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
