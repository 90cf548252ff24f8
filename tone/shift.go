package tone

import "math"

// Shift classifications for AnalyzeShift.
const (
	ShiftNone     = "none"
	ShiftStable   = "stable"
	ShiftPositive = "positive_shift"
	ShiftNegative = "negative_shift"
)

// Trend classifications over the recent message window.
const (
	TrendStable    = "stable"
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendVariable  = "variable"
)

// ShiftReport describes how the conversation's emotional direction moved
// between the recent messages and the current one.
type ShiftReport struct {
	Current   Signal
	Shift     string
	Magnitude float64
	Trend     string

	// Previous holds the analyses of the (up to three) most recent prior
	// messages, oldest first.
	Previous []Signal
}

// AnalyzeShift compares the current message's polarity against the tail of
// the conversation. A polarity swing above 0.4 counts as a shift; monotone
// polarity over the window classifies the trend.
func (a *Analyzer) AnalyzeShift(previous []string, current string) ShiftReport {
	cur := a.Analyze(current)
	if len(previous) == 0 {
		return ShiftReport{Current: cur, Shift: ShiftNone, Trend: TrendStable}
	}

	if len(previous) > 3 {
		previous = previous[len(previous)-3:]
	}
	recent := make([]Signal, 0, len(previous))
	for _, msg := range previous {
		recent = append(recent, a.Analyze(msg))
	}

	prev := recent[len(recent)-1].Polarity
	magnitude := math.Abs(cur.Polarity - prev)
	shift := ShiftStable
	if magnitude > 0.4 {
		if cur.Polarity > prev {
			shift = ShiftPositive
		} else {
			shift = ShiftNegative
		}
	}

	return ShiftReport{
		Current:   cur,
		Shift:     shift,
		Magnitude: magnitude,
		Trend:     trendOf(recent),
		Previous:  recent,
	}
}

func trendOf(recent []Signal) string {
	if len(recent) < 2 {
		return TrendStable
	}
	improving, declining := true, true
	for i := 1; i < len(recent); i++ {
		if recent[i].Polarity < recent[i-1].Polarity {
			improving = false
		}
		if recent[i].Polarity > recent[i-1].Polarity {
			declining = false
		}
	}
	switch {
	case improving:
		return TrendImproving
	case declining:
		return TrendDeclining
	default:
		return TrendVariable
	}
}
