package persona

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/memory"
	"github.com/amicalabs/amica/tone"
)

// Substitution variants for generic phrases, keyed by communication style.
// A style without its own list falls back to casual.
var acknowledgments = map[string][]string{
	"formal":     {"I understand.", "I see.", "That's noted."},
	"casual":     {"Got it!", "Yeah, I see!", "Makes sense!"},
	"empathetic": {"I hear you.", "I understand how you feel.", "That resonates with me."},
}

var interestExpressions = map[string][]string{
	"formal": {"That's quite fascinating.", "How intriguing.", "That's noteworthy."},
	"casual": {"That's really cool!", "Wow, interesting!", "No way, really?"},
	"":       {"That's really interesting!", "Tell me more about that.", "I'd love to hear more."},
}

var helpOffers = map[string][]string{
	"formal": {"I'd be happy to assist you.", "Let me help you with that.", "I can certainly help."},
	"casual": {"I've got you covered!", "Let me help you out!", "I can totally help with that!"},
	"":       {"I'm here to help!", "Let's figure this out together.", "I'd love to help you with that."},
}

var transitions = []string{"Also,", "Plus,", "And", "By the way,", "Actually,"}

// memoryCallbacks holds lead-in phrases per memory type. Emotion callbacks
// are complete sentences and take no content.
var memoryCallbacks = map[memory.Type][]string{
	memory.TypePreference: {
		"I remember you mentioned liking",
		"Since you prefer",
		"Given your interest in",
	},
	memory.TypeFact: {
		"I recall you telling me about",
		"You mentioned earlier that",
		"I remember you said",
	},
	memory.TypeEmotion: {
		"I know this is important to you.",
		"Given how you feel about this, I want to be thoughtful here.",
		"I understand this matters to you.",
	},
}

const (
	defaultTransitionProbability = 0.3

	// callbackSimilarity is the recall similarity above which a memory is
	// considered on-topic enough to reference directly.
	callbackSimilarity = 0.7

	// callbackMaxLength limits callbacks to short responses, where a
	// prefixed reference reads naturally.
	callbackMaxLength = 150
)

// Shaper post-processes model responses to sound less templated: phrase
// substitution, emotion-matched openings, occasional transitions, and
// memory callbacks. Safe for concurrent use; turns across sessions share
// one Shaper.
type Shaper struct {
	// mu guards rng, which is not safe for concurrent use.
	mu                    sync.Mutex
	rng                   *rand.Rand
	transitionProbability float64
}

// ShaperOption configures a Shaper.
type ShaperOption func(*Shaper)

// WithRand injects the random source. Tests pin a seed here.
func WithRand(rng *rand.Rand) ShaperOption {
	return func(s *Shaper) { s.rng = rng }
}

// WithTransitionProbability overrides the transition insertion chance.
func WithTransitionProbability(p float64) ShaperOption {
	return func(s *Shaper) { s.transitionProbability = p }
}

// NewShaper returns a Shaper. Without WithRand it seeds from the clock.
func NewShaper(opts ...ShaperOption) *Shaper {
	s := &Shaper{
		transitionProbability: defaultTransitionProbability,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Shape applies all post-processing passes in order: substitution,
// emotional prefix, transition insertion, memory callback.
func (s *Shaper) Shape(response string, profile core.UserProfile, sig tone.Signal, memories []memory.Recalled) string {
	response = s.substitute(response, profile.CommunicationStyle)
	response = s.emotionalPrefix(response, sig)
	response = s.insertTransition(response)
	response = s.memoryCallback(response, memories)
	return response
}

// substitute replaces generic phrases with style-keyed variants.
func (s *Shaper) substitute(response, style string) string {
	if strings.Contains(response, "I understand.") {
		response = strings.ReplaceAll(response, "I understand.", s.pickStyled(acknowledgments, style, "casual"))
	}
	if strings.Contains(response, "That's interesting.") {
		response = strings.ReplaceAll(response, "That's interesting.", s.pickStyled(interestExpressions, style, ""))
	}
	if strings.Contains(response, "I can help you with that.") {
		response = strings.ReplaceAll(response, "I can help you with that.", s.pickStyled(helpOffers, style, ""))
	}
	return response
}

// emotionalPrefix opens strongly emotional turns with a matching clause,
// unless the response already carries emotional language.
func (s *Shaper) emotionalPrefix(response string, sig tone.Signal) string {
	lower := strings.ToLower(response)
	switch {
	case sig.Emotions[tone.EmotionSadness] > 0.5:
		if !containsAny(lower, "sorry", "understand", "difficult") {
			return "I can sense this is tough for you. " + response
		}
	case sig.Emotions[tone.EmotionJoy] > 0.5:
		if !containsAny(lower, "great", "wonderful", "excited") {
			return "I love your enthusiasm! " + response
		}
	}
	return response
}

// insertTransition occasionally opens the second sentence of a longer
// response with a transition word.
func (s *Shaper) insertTransition(response string) string {
	sentences := strings.Split(response, ". ")
	if len(sentences) <= 2 {
		return response
	}
	if s.float64() >= s.transitionProbability {
		return response
	}
	transition := transitions[s.intn(len(transitions))]
	sentences[1] = transition + " " + lowerFirst(sentences[1])
	return strings.Join(sentences, ". ")
}

// memoryCallback prefixes a reference to the top recalled memory when it is
// clearly on topic and the response is short enough to carry it.
func (s *Shaper) memoryCallback(response string, memories []memory.Recalled) string {
	if len(memories) == 0 || utf8.RuneCountInString(response) >= callbackMaxLength {
		return response
	}
	top := memories[0]
	if top.Similarity <= callbackSimilarity {
		return response
	}
	phrases, ok := memoryCallbacks[top.Memory.Type]
	if !ok {
		return response
	}
	phrase := phrases[s.intn(len(phrases))]
	if top.Memory.Type == memory.TypeEmotion {
		return phrase + " " + response
	}
	return phrase + " " + callbackContent(top.Memory.Content) + ". " + response
}

// callbackContent reshapes stored memory content into a clause that reads
// naturally after a lead-in phrase.
func callbackContent(content string) string {
	content = strings.TrimRight(strings.TrimSpace(content), ".!")
	for prefix, replacement := range map[string]string{
		"User's ":     "your ",
		"The user's ": "your ",
		"User ":       "you ",
		"The user ":   "you ",
	} {
		if strings.HasPrefix(content, prefix) {
			return replacement + content[len(prefix):]
		}
	}
	return lowerFirst(content)
}

func (s *Shaper) pickStyled(table map[string][]string, style, fallback string) string {
	options, ok := table[style]
	if !ok {
		options = table[fallback]
	}
	return options[s.intn(len(options))]
}

func (s *Shaper) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Shaper) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
