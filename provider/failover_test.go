package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amicalabs/amica/core"
)

func TestFailoverUsesFirstSuccess(t *testing.T) {
	primary := NewMock("primary")
	secondary := NewMock("secondary")
	chain := NewFailover([]Provider{primary, secondary})

	reply, err := chain.Generate(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hello"},
	}, 0.7, 100)
	require.NoError(t, err)
	assert.Equal(t, "primary", reply.ModelUsed)
	assert.Empty(t, secondary.Calls())
}

func TestFailoverFallsThrough(t *testing.T) {
	primary := NewMock("primary").Fail(errors.New("rate limited"))
	secondary := NewMock("secondary")
	chain := NewFailover([]Provider{primary, secondary})

	reply, err := chain.Generate(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hello"},
	}, 0.7, 100)
	require.NoError(t, err)
	assert.Equal(t, "secondary", reply.ModelUsed)
	assert.Len(t, primary.Calls(), 1)
}

func TestFailoverExhaustion(t *testing.T) {
	chain := NewFailover([]Provider{
		NewMock("primary").Fail(errors.New("rate limited")),
		NewMock("secondary").Fail(errors.New("timeout")),
	})

	_, err := chain.Generate(context.Background(), nil, 0.7, 100)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "timeout")
}

func TestFailoverEmptyChain(t *testing.T) {
	chain := NewFailover(nil)

	_, err := chain.Generate(context.Background(), nil, 0.7, 100)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestFailoverStopsOnCancel(t *testing.T) {
	primary := NewMock("primary")
	chain := NewFailover([]Provider{primary})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := chain.Generate(ctx, nil, 0.7, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, primary.Calls())
}

func TestMockEchoesLastUserMessage(t *testing.T) {
	mock := NewMock("")

	reply, err := mock.Generate(context.Background(), []core.Message{
		{Role: core.RoleSystem, Content: "be helpful"},
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleAssistant, Content: "reply"},
		{Role: core.RoleUser, Content: "second"},
	}, 0.7, 100)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: second", reply.Content)
	assert.Equal(t, "mock", reply.ModelUsed)
	assert.Positive(t, reply.TokensUsed)
}

func TestMockRecordsCalls(t *testing.T) {
	mock := NewMock("scripted").Respond(func(messages []core.Message, temperature float64, maxTokens int) (*Reply, error) {
		return &Reply{Content: "scripted reply"}, nil
	})

	_, err := mock.LastCall()
	assert.Error(t, err)

	reply, err := mock.Generate(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hi"},
	}, 0.5, 200)
	require.NoError(t, err)
	assert.Equal(t, "scripted reply", reply.Content)

	call, err := mock.LastCall()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, call.Temperature, 1e-9)
	assert.Equal(t, 200, call.MaxTokens)
	require.Len(t, call.Messages, 1)
	assert.Equal(t, "hi", call.Messages[0].Content)
}
