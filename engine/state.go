package engine

// State tracks a turn's progress through the pipeline. States advance
// monotonically; Failed is terminal and reachable from any state.
type State int

const (
	StateReceived State = iota
	StateToneAnalyzed
	StateMemoriesRecalled
	StateProfileLoaded
	StatePromptBuilt
	StateResponseGenerated
	StateResponseShaped
	StateMemoriesExtracted
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateReceived:          "received",
	StateToneAnalyzed:      "tone_analyzed",
	StateMemoriesRecalled:  "memories_recalled",
	StateProfileLoaded:     "profile_loaded",
	StatePromptBuilt:       "prompt_built",
	StateResponseGenerated: "response_generated",
	StateResponseShaped:    "response_shaped",
	StateMemoriesExtracted: "memories_extracted",
	StateCompleted:         "completed",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
