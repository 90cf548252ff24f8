// Package anthropic adapts the Anthropic Messages API to the provider
// interface. It is the primary provider in the default failover chain.
package anthropic

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/provider"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Provider calls the Anthropic Messages API.
type Provider struct {
	client sdk.Client
	model  sdk.Model
}

// Config configures the provider.
type Config struct {
	// APIKey authenticates requests. Falls back to the SDK's standard
	// environment lookup when empty.
	APIKey string

	// Model selects the model. Defaults to DefaultModel.
	Model string
}

// New creates an Anthropic provider.
func New(cfg Config) *Provider {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		client: sdk.NewClient(opts...),
		model:  sdk.Model(model),
	}
}

// Generate sends one Messages API request. System messages are lifted into
// the system parameter; the rest become user/assistant turns.
func (p *Provider) Generate(ctx context.Context, messages []core.Message, temperature float64, maxTokens int) (*provider.Reply, error) {
	var system []sdk.TextBlockParam
	var turns []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case core.RoleAssistant:
			turns = append(turns, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			turns = append(turns, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("anthropic: no user or assistant messages to send")
	}

	params := sdk.MessageNewParams{
		Model:       p.model,
		MaxTokens:   int64(maxTokens),
		Messages:    turns,
		Temperature: sdk.Float(temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &provider.Reply{
		Content:    text,
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		ModelUsed:  string(p.model),
	}, nil
}

// Name returns "anthropic".
func (p *Provider) Name() string {
	return "anthropic"
}
