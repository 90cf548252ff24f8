package tone

// Emotion category labels. Order is fixed so normalization and tests are
// deterministic.
const (
	EmotionJoy      = "joy"
	EmotionSadness  = "sadness"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionSurprise = "surprise"
	EmotionDisgust  = "disgust"
)

// EmotionCategories lists the six scored emotions in canonical order.
var EmotionCategories = []string{
	EmotionJoy, EmotionSadness, EmotionAnger,
	EmotionFear, EmotionSurprise, EmotionDisgust,
}

// emotionLexicon maps each category to its trigger keywords.
var emotionLexicon = map[string][]string{
	EmotionJoy:      {"happy", "excited", "great", "awesome", "wonderful", "amazing", "love", "fantastic"},
	EmotionSadness:  {"sad", "depressed", "down", "upset", "disappointed", "hurt", "crying"},
	EmotionAnger:    {"angry", "mad", "furious", "annoyed", "frustrated", "irritated", "hate"},
	EmotionFear:     {"scared", "afraid", "worried", "anxious", "nervous", "terrified", "panic"},
	EmotionSurprise: {"wow", "amazing", "incredible", "unbelievable", "shocking", "unexpected"},
	EmotionDisgust:  {"disgusting", "gross", "awful", "terrible", "horrible", "nasty"},
}

var formalIndicators = []string{
	"please", "thank you", "would you", "could you", "i would like", "i appreciate",
}

var casualIndicators = []string{
	"hey", "hi", "yeah", "cool", "awesome", "lol", "omg", "btw", "gonna", "wanna",
}

var urgencyIndicators = []string{
	"urgent", "asap", "immediately", "now", "quickly", "fast",
	"emergency", "help", "please help", "right away", "soon",
}

// Sentiment word lists drive the polarity/subjectivity estimate used when
// no single emotion dominates.
var positiveWords = []string{
	"happy", "excited", "love", "great", "awesome", "wonderful", "amazing",
	"fantastic", "good", "nice", "excellent", "glad", "enjoy", "perfect",
	"beautiful", "best", "fun", "pleased", "delighted", "thrilled",
}

var negativeWords = []string{
	"sad", "angry", "frustrated", "disappointed", "worried", "depressed",
	"upset", "hurt", "bad", "terrible", "awful", "horrible", "hate",
	"worst", "annoyed", "scared", "afraid", "miserable", "lonely", "anxious",
}
