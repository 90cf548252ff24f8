// Package tone analyzes the emotional texture of a single message:
// emotion distribution, formality, urgency, and a primary tone label.
// Analysis is pure lexicon matching with no I/O, so it is deterministic
// and cannot fail; absent signal degrades to a uniform neutral state.
package tone

import (
	"strings"
	"unicode"
)

// Formality classifies the register of a message.
type Formality string

const (
	FormalityFormal  Formality = "formal"
	FormalityNeutral Formality = "neutral"
	FormalityCasual  Formality = "casual"
)

// Signal is the complete analysis result for one message.
type Signal struct {
	// PrimaryTone is one of: happy, pleased, sad, frustrated, worried,
	// surprised, positive, negative, neutral.
	PrimaryTone string

	// Confidence in [0.1,1.0] for the PrimaryTone classification.
	Confidence float64

	// Emotions maps each of the six categories to a normalized score.
	// Scores sum to 1.0; a uniform 1/6 distribution is the explicit
	// no-signal state.
	Emotions map[string]float64

	Formality Formality

	// Urgency in [0,1].
	Urgency float64

	// Polarity in [-1,1] and Subjectivity in [0,1] from the independent
	// sentiment estimate.
	Polarity     float64
	Subjectivity float64

	TextLength       int
	QuestionCount    int
	ExclamationCount int
}

// DominantEmotion returns the highest-scoring category, using canonical
// category order to break exact ties.
func (s Signal) DominantEmotion() (string, float64) {
	best := EmotionCategories[0]
	bestScore := s.Emotions[best]
	for _, e := range EmotionCategories[1:] {
		if s.Emotions[e] > bestScore {
			best, bestScore = e, s.Emotions[e]
		}
	}
	return best, bestScore
}

// Analyzer scores messages against fixed lexicons.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer with the default lexicons.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze produces a complete Signal for text. Never fails.
func (a *Analyzer) Analyze(text string) Signal {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	lowerWords := normalizeWords(lower)

	polarity, subjectivity := sentiment(lowerWords)
	emotions := scoreEmotions(lower, lowerWords)
	formality := classifyFormality(text, lower, words)
	urgency := scoreUrgency(text, lower, words)

	sig := Signal{
		Emotions:         emotions,
		Formality:        formality,
		Urgency:          urgency,
		Polarity:         polarity,
		Subjectivity:     subjectivity,
		TextLength:       len(text),
		QuestionCount:    strings.Count(text, "?"),
		ExclamationCount: strings.Count(text, "!"),
	}
	sig.PrimaryTone = primaryTone(polarity, emotions, formality)
	sig.Confidence = confidence(emotions, subjectivity)
	return sig
}

// scoreEmotions accumulates per-category scores: 0.2 per distinct matched
// keyword plus 0.1 per whole-word occurrence, capped at 1.0, normalized to
// sum 1.0. A zero raw total yields the uniform distribution.
func scoreEmotions(lower string, lowerWords []string) map[string]float64 {
	scores := make(map[string]float64, len(EmotionCategories))
	total := 0.0

	for _, category := range EmotionCategories {
		keywords := emotionLexicon[category]
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 0.2
			}
		}
		occurrences := 0
		for _, w := range lowerWords {
			if containsWord(keywords, w) {
				occurrences++
			}
		}
		score += float64(occurrences) * 0.1
		if score > 1.0 {
			score = 1.0
		}
		scores[category] = score
		total += score
	}

	if total == 0 {
		uniform := 1.0 / float64(len(EmotionCategories))
		for _, category := range EmotionCategories {
			scores[category] = uniform
		}
		return scores
	}
	for _, category := range EmotionCategories {
		scores[category] /= total
	}
	return scores
}

// classifyFormality weighs formal against casual indicators, with bonuses
// for long-word density and period-heavy punctuation.
func classifyFormality(text, lower string, words []string) Formality {
	var formal, casual float64
	for _, ind := range formalIndicators {
		if strings.Contains(lower, ind) {
			formal++
		}
	}
	for _, ind := range casualIndicators {
		if strings.Contains(lower, ind) {
			casual++
		}
	}

	if len(words) > 0 {
		long := 0
		for _, w := range words {
			if len(w) > 6 {
				long++
			}
		}
		if float64(long) > float64(len(words))*0.3 {
			formal++
		}
	}
	if strings.Count(text, ".") > strings.Count(text, "!")+strings.Count(text, "?") {
		formal += 0.5
	}

	switch {
	case casual > formal*1.5:
		return FormalityCasual
	case formal > casual*1.5:
		return FormalityFormal
	default:
		return FormalityNeutral
	}
}

// scoreUrgency accumulates keyword hits plus exclamation and all-caps
// bonuses, capped at 1.0.
func scoreUrgency(text, lower string, words []string) float64 {
	score := 0.0
	for _, ind := range urgencyIndicators {
		if strings.Contains(lower, ind) {
			score += 0.2
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 1 {
		bonus := float64(exclamations) * 0.1
		if bonus > 0.3 {
			bonus = 0.3
		}
		score += bonus
	}

	caps := 0
	for _, w := range words {
		if len(w) > 2 && isAllUpper(w) {
			caps++
		}
	}
	capsBonus := float64(caps) * 0.05
	if capsBonus > 0.2 {
		capsBonus = 0.2
	}
	score += capsBonus

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// primaryTone maps a strong dominant emotion to a tone label, falling back
// to coarse sentiment polarity.
func primaryTone(polarity float64, emotions map[string]float64, formality Formality) string {
	dominant, score := dominantOf(emotions)
	if score > 0.3 {
		switch dominant {
		case EmotionJoy:
			if formality == FormalityCasual {
				return "happy"
			}
			return "pleased"
		case EmotionSadness:
			return "sad"
		case EmotionAnger:
			return "frustrated"
		case EmotionFear:
			return "worried"
		case EmotionSurprise:
			return "surprised"
		}
	}

	switch {
	case polarity > 0.3:
		return "positive"
	case polarity < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}

// confidence combines dominant-emotion strength with subjectivity,
// clamped to [0.1,1.0].
func confidence(emotions map[string]float64, subjectivity float64) float64 {
	_, maxScore := dominantOf(emotions)
	c := (maxScore*2 + subjectivity) / 2
	if c > 1.0 {
		c = 1.0
	}
	if c < 0.1 {
		c = 0.1
	}
	return c
}

// sentiment estimates polarity and subjectivity from positive/negative
// word counts.
func sentiment(lowerWords []string) (polarity, subjectivity float64) {
	var pos, neg int
	for _, w := range lowerWords {
		if containsWord(positiveWords, w) {
			pos++
		}
		if containsWord(negativeWords, w) {
			neg++
		}
	}
	hits := pos + neg
	if hits == 0 || len(lowerWords) == 0 {
		return 0, 0
	}
	polarity = float64(pos-neg) / float64(hits)
	subjectivity = float64(hits) * 3 / float64(len(lowerWords))
	if subjectivity > 1.0 {
		subjectivity = 1.0
	}
	return polarity, subjectivity
}

func dominantOf(emotions map[string]float64) (string, float64) {
	best := EmotionCategories[0]
	bestScore := emotions[best]
	for _, e := range EmotionCategories[1:] {
		if emotions[e] > bestScore {
			best, bestScore = e, emotions[e]
		}
	}
	return best, bestScore
}

// normalizeWords lowercases, splits, and strips edge punctuation.
func normalizeWords(lower string) []string {
	fields := strings.Fields(lower)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsWord(list []string, w string) bool {
	for _, item := range list {
		if item == w {
			return true
		}
	}
	return false
}

func isAllUpper(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
