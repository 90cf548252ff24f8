// Package persona composes personality-adaptive prompts and post-processes
// model responses. Both components are pure: the Builder is deterministic
// over its inputs, and the Shaper's randomness comes from an injected
// source so tests can pin it.
package persona

import (
	"fmt"
	"strings"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/memory"
	"github.com/amicalabs/amica/tone"
)

// maxPromptMemories caps how many memories the prompt references.
const maxPromptMemories = 5

// importantThreshold marks memories called out as IMPORTANT in the prompt.
const importantThreshold = 7

// Builder composes the system prompt for one turn from the user's profile,
// the tone analysis of their message, and the recalled memories.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the complete system prompt. Pure; no storage or network
// access.
func (b *Builder) Build(profile core.UserProfile, sig tone.Signal, memories []memory.Recalled) string {
	dominant, _ := sig.DominantEmotion()
	style := profile.CommunicationStyle

	var prompt strings.Builder
	prompt.WriteString("You are a highly empathetic and human-like AI assistant with a warm, engaging personality. Your goal is to have natural, meaningful conversations that feel genuinely human.\n\n")

	prompt.WriteString("PERSONALITY TRAITS:\n")
	prompt.WriteString(styleDirectives(style))
	prompt.WriteString(emotionDirectives(dominant, profile.EmotionalSensitivity))

	prompt.WriteString("\nCONVERSATION STYLE:\n")
	prompt.WriteString(`- Be conversational and natural, not robotic or overly formal
- Show genuine interest in the user's thoughts and feelings
- Use varied language and avoid repetitive responses
- Mirror the user's communication style appropriately
- Remember and reference previous conversations naturally
- Show empathy and emotional intelligence
`)

	prompt.WriteString("\nCURRENT CONTEXT:\n")
	fmt.Fprintf(&prompt, "- User's current emotional state: %s\n", dominant)
	fmt.Fprintf(&prompt, "- Communication preference: %s\n", style)
	if len(profile.TopicsOfInterest) > 0 {
		fmt.Fprintf(&prompt, "- The user is interested in: %s\n", strings.Join(profile.TopicsOfInterest, ", "))
	}

	prompt.WriteString("\n")
	prompt.WriteString(memoryBlock(memories))

	prompt.WriteString("\n\nRESPONSE GUIDELINES:\n")
	prompt.WriteString(`- Keep responses concise but meaningful (1-3 sentences typically)
- Use natural conversation flow with appropriate transitions
- Show personality through word choice and tone
- Avoid generic responses like "I understand" or "That's interesting" without elaboration
- Reference memories naturally when relevant
- Adapt your tone to match the user's emotional state
- Be helpful while maintaining conversational warmth

Remember: You're not just answering questions - you're having a genuine conversation with someone you care about.`)

	return prompt.String()
}

func styleDirectives(style string) string {
	switch style {
	case "formal":
		return `- Maintain a professional yet warm tone
- Use complete sentences and proper grammar
- Be respectful and courteous
`
	case "casual":
		return `- Use a relaxed, friendly tone
- Feel free to use contractions and casual language
- Be approachable and down-to-earth
`
	default:
		return `- Balance professionalism with warmth
- Be genuinely interested and caring
- Adapt your formality to match the user
`
	}
}

func emotionDirectives(dominant string, sensitivity float64) string {
	switch {
	case dominant == tone.EmotionSadness && sensitivity > 0.6:
		return `- Be extra gentle and supportive
- Offer comfort without being overwhelming
- Listen more than you speak
`
	case dominant == tone.EmotionJoy:
		return `- Share in their positive energy
- Be enthusiastic but not over the top
- Celebrate their good news
`
	case dominant == tone.EmotionAnger:
		return `- Remain calm and understanding
- Validate their feelings without escalating
- Focus on solutions when appropriate
`
	default:
		return ""
	}
}

func memoryBlock(memories []memory.Recalled) string {
	if len(memories) == 0 {
		return "MEMORIES: This is a new conversation with this user."
	}
	if len(memories) > maxPromptMemories {
		memories = memories[:maxPromptMemories]
	}

	lines := make([]string, 0, len(memories)+1)
	lines = append(lines, "MEMORIES ABOUT USER:")
	for _, rec := range memories {
		tag := strings.ToUpper(string(rec.Memory.Type))
		if rec.Memory.Importance >= importantThreshold {
			lines = append(lines, fmt.Sprintf("[IMPORTANT %s] %s", tag, rec.Memory.Content))
		} else {
			lines = append(lines, fmt.Sprintf("[%s] %s", tag, rec.Memory.Content))
		}
	}
	return strings.Join(lines, "\n")
}
