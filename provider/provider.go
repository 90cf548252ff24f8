// Package provider defines the language-model boundary: a small Generate
// interface, token budgeting helpers, a failover chain, and a scriptable
// mock. Concrete API adapters live in the anthropic and openai subpackages.
package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/amicalabs/amica/core"
)

// Reply is a single model completion.
type Reply struct {
	Content string

	// TokensUsed is the provider-reported total (input plus output).
	TokensUsed int

	// ModelUsed names the concrete model that produced the reply.
	ModelUsed string
}

// Provider generates completions. Implementations must not panic; every
// failure is an error callers treat as recoverable.
type Provider interface {
	// Generate produces one completion for the message list. temperature
	// is the sampling temperature in [0,1]; maxTokens caps the output.
	Generate(ctx context.Context, messages []core.Message, temperature float64, maxTokens int) (*Reply, error)

	// Name identifies the provider for logging and failover reporting.
	Name() string
}

// Mock is a scriptable in-memory provider for tests and offline demos.
// With no script it echoes the last user message.
type Mock struct {
	mu      sync.Mutex
	name    string
	handler func(messages []core.Message, temperature float64, maxTokens int) (*Reply, error)
	calls   []MockCall
}

// MockCall records the arguments of one Generate invocation.
type MockCall struct {
	Messages    []core.Message
	Temperature float64
	MaxTokens   int
}

// NewMock creates a mock provider. An empty name defaults to "mock".
func NewMock(name string) *Mock {
	if name == "" {
		name = "mock"
	}
	return &Mock{name: name}
}

// Respond installs a handler deciding every reply.
func (m *Mock) Respond(handler func(messages []core.Message, temperature float64, maxTokens int) (*Reply, error)) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return m
}

// Fail makes every Generate call return err.
func (m *Mock) Fail(err error) *Mock {
	return m.Respond(func([]core.Message, float64, int) (*Reply, error) {
		return nil, err
	})
}

// Generate runs the installed handler, or echoes the last user message.
func (m *Mock) Generate(ctx context.Context, messages []core.Message, temperature float64, maxTokens int) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{
		Messages:    append([]core.Message(nil), messages...),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		return handler(messages, temperature, maxTokens)
	}

	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			last = messages[i].Content
			break
		}
	}
	content := "Mock response to: " + last
	return &Reply{
		Content:    content,
		TokensUsed: EstimateTokens(strings.Join([]string{last, content}, " ")),
		ModelUsed:  m.name,
	}, nil
}

// Name returns the mock's configured name.
func (m *Mock) Name() string {
	return m.name
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// LastCall returns the most recent invocation, or an error if there is none.
func (m *Mock) LastCall() (MockCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MockCall{}, fmt.Errorf("mock %s: no calls recorded", m.name)
	}
	return m.calls[len(m.calls)-1], nil
}
