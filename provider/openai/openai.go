// Package openai adapts the OpenAI Chat Completions API to the provider
// interface. It is the secondary provider in the default failover chain.
package openai

import (
	"context"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/provider"
)

// Provider calls the OpenAI Chat Completions API.
type Provider struct {
	client sdk.Client
	model  string
}

// Config configures the provider.
type Config struct {
	// APIKey authenticates requests. Falls back to the SDK's standard
	// environment lookup when empty.
	APIKey string

	// Model selects the model. Defaults to gpt-4o-mini.
	Model string
}

// New creates an OpenAI provider.
func New(cfg Config) *Provider {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Model
	if model == "" {
		model = sdk.ChatModelGPT4oMini
	}
	return &Provider{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

// Generate sends one chat completion request.
func (p *Provider) Generate(ctx context.Context, messages []core.Message, temperature float64, maxTokens int) (*provider.Reply, error) {
	turns := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			turns = append(turns, sdk.SystemMessage(m.Content))
		case core.RoleAssistant:
			turns = append(turns, sdk.AssistantMessage(m.Content))
		default:
			turns = append(turns, sdk.UserMessage(m.Content))
		}
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("openai: no messages to send")
	}

	resp, err := p.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages:            turns,
		Model:               p.model,
		Temperature:         sdk.Float(temperature),
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}

	return &provider.Reply{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
		ModelUsed:  p.model,
	}, nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}
