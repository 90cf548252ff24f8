package provider

import (
	"math"
	"strings"

	"github.com/amicalabs/amica/core"
)

// tokensPerWord approximates subword tokenization for English text. Rough
// but provider-agnostic; budgets using it should leave headroom.
const tokensPerWord = 1.3

// EstimateTokens approximates the token count of text from its word count.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * tokensPerWord))
}

// EstimateMessageTokens approximates the token count of a message list.
func EstimateMessageTokens(messages []core.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

// Compress trims a message list to fit budget tokens. A leading system
// message is always kept, then messages are retained newest first until
// the budget runs out, preserving chronological order in the output. The
// newest message survives even when it alone exceeds the budget, since a
// turn cannot proceed without it.
func Compress(messages []core.Message, budget int) []core.Message {
	if len(messages) == 0 || budget <= 0 {
		return messages
	}
	if EstimateMessageTokens(messages) <= budget {
		return messages
	}

	out := make([]core.Message, 0, len(messages))
	remaining := budget
	rest := messages
	if messages[0].Role == core.RoleSystem {
		out = append(out, messages[0])
		remaining -= EstimateTokens(messages[0].Content)
		rest = messages[1:]
	}
	if len(rest) == 0 {
		return out
	}

	keepFrom := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		cost := EstimateTokens(rest[i].Content)
		if cost > remaining {
			break
		}
		remaining -= cost
		keepFrom = i
	}
	if keepFrom == len(rest) {
		keepFrom = len(rest) - 1
	}
	return append(out, rest[keepFrom:]...)
}
