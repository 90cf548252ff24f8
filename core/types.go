// Package core defines the shared data types exchanged between the
// conversation pipeline components: messages, turn requests/results, user
// profiles, and the error taxonomy.
package core

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage tracks language-model token consumption for a turn.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns the combined input and output token count.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// TurnRequest is one user utterance entering the conversation engine.
type TurnRequest struct {
	// UserID identifies the speaking user. Required.
	UserID string

	// SessionID identifies the conversation. When empty a new session is
	// created and its ID is returned in the TurnResult.
	SessionID string

	// Message is the raw user utterance.
	Message string

	// RecentContext is an optional hint (e.g. topic of the preceding
	// exchange) blended into the memory recall query.
	RecentContext string
}

// TurnResult is the engine's answer to a single turn. The engine always
// returns a well-formed result; failures surface as the fallback response
// text, never as an error shape.
type TurnResult struct {
	// Response is the shaped assistant reply.
	Response string `json:"response"`

	// SessionID echoes or assigns the conversation identifier.
	SessionID string `json:"session_id"`

	// ToneUsed is the response tone label chosen for this turn
	// (empathetic, enthusiastic, calming, professional, friendly, warm).
	ToneUsed string `json:"tone_used"`

	// EmotionsDetected is the normalized emotion distribution of the
	// user's message. Empty on a failed turn.
	EmotionsDetected map[string]float64 `json:"emotions_detected"`

	// MemoriesRecalled holds truncated previews of the memories used to
	// condition the response, best first.
	MemoriesRecalled []string `json:"memories_recalled"`

	// TokensUsed is the provider token consumption; zero when the
	// fallback response was substituted.
	TokensUsed int `json:"tokens_used"`

	// Elapsed is the wall-clock processing time for the turn.
	Elapsed time.Duration `json:"elapsed"`
}

// UserProfile is derived from a user's accumulated memories at request
// time. It is never persisted; callers that want caching do it themselves.
type UserProfile struct {
	// CommunicationStyle is formal, casual, or neutral.
	CommunicationStyle string `json:"communication_style"`

	// FormalityPreference mirrors CommunicationStyle unless overridden
	// by an explicit user preference memory.
	FormalityPreference string `json:"formality_preference"`

	// TopicsOfInterest holds up to five inferred interest categories.
	TopicsOfInterest []string `json:"topics_of_interest"`

	// EmotionalSensitivity in [0,1] gates how gently the assistant
	// responds to negative emotion.
	EmotionalSensitivity float64 `json:"emotional_sensitivity"`

	// Positivity in [0.1,0.9] summarizes the emotional valence of the
	// user's memory set.
	Positivity float64 `json:"positivity"`

	// Volatility in [0,0.8] summarizes how emotionally loaded the
	// user's memory set is.
	Volatility float64 `json:"volatility"`
}

// DefaultProfile is the neutral profile substituted when no memories exist
// or profile derivation fails mid-turn.
func DefaultProfile() UserProfile {
	return UserProfile{
		CommunicationStyle:   "neutral",
		FormalityPreference:  "neutral",
		EmotionalSensitivity: 0.5,
		Positivity:           0.5,
		Volatility:           0.3,
	}
}
