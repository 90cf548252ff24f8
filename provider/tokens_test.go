package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amicalabs/amica/core"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("   "))
	assert.Equal(t, 2, EstimateTokens("hello"))
	assert.Equal(t, 3, EstimateTokens("hello there"))
	assert.Equal(t, 13, EstimateTokens("one two three four five six seven eight nine ten"))
}

func TestEstimateMessageTokens(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "hello there"},
		{Role: core.RoleUser, Content: "hello"},
	}
	assert.Equal(t, 5, EstimateMessageTokens(messages))
}

func TestCompressUnderBudgetIsUntouched(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "be helpful"},
		{Role: core.RoleUser, Content: "hi"},
	}
	assert.Equal(t, messages, Compress(messages, 100))
}

func TestCompressKeepsSystemAndNewest(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "be helpful"},                                // 3 tokens
		{Role: core.RoleUser, Content: "first question about a long ago topic"},      // 10 tokens
		{Role: core.RoleAssistant, Content: "first answer with plenty of words too"}, // 10 tokens
		{Role: core.RoleUser, Content: "latest question"},                            // 3 tokens
	}

	out := Compress(messages, 10)
	require.Len(t, out, 2)
	assert.Equal(t, core.RoleSystem, out[0].Role)
	assert.Equal(t, "latest question", out[1].Content)
}

func TestCompressPreservesOrder(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "be helpful"},
		{Role: core.RoleUser, Content: "one two three four five six seven eight"},
		{Role: core.RoleAssistant, Content: "short reply"},
		{Role: core.RoleUser, Content: "newest message here"},
	}

	out := Compress(messages, 15)
	require.Len(t, out, 3)
	assert.Equal(t, core.RoleSystem, out[0].Role)
	assert.Equal(t, "short reply", out[1].Content)
	assert.Equal(t, "newest message here", out[2].Content)
}

func TestCompressNewestSurvivesOverBudget(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleUser, Content: "old message that should be dropped entirely"},
		{Role: core.RoleUser, Content: "a very long newest message that alone blows the whole budget wide open"},
	}

	out := Compress(messages, 3)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "newest message")
}

func TestCompressEdgeCases(t *testing.T) {
	assert.Empty(t, Compress(nil, 100))

	messages := []core.Message{{Role: core.RoleUser, Content: "hi"}}
	assert.Equal(t, messages, Compress(messages, 0))

	onlySystem := []core.Message{{Role: core.RoleSystem, Content: "a very long system prompt with many many words in it overflowing"}}
	out := Compress(onlySystem, 3)
	require.Len(t, out, 1)
	assert.Equal(t, core.RoleSystem, out[0].Role)
}
