// Package engine orchestrates one conversation turn: tone analysis, memory
// recall, profile derivation, prompt building, the provider call, response
// shaping, and background memory extraction. The engine is the single place
// that converts component failures into either a substituted default or the
// terminal fallback response; its callers never see raw pipeline errors.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/memory"
	"github.com/amicalabs/amica/persona"
	"github.com/amicalabs/amica/provider"
	"github.com/amicalabs/amica/session"
	"github.com/amicalabs/amica/tone"
)

// FallbackResponse is returned whenever a turn cannot produce a real model
// response. Token usage is always zero alongside it.
const FallbackResponse = "I apologize, but I'm having trouble processing your request right now. Could you please try again?"

// fallbackTone labels turns that returned the fallback response from the
// Failed state.
const fallbackTone = "apologetic"

// memoryPreviewLength bounds the recalled-memory previews in turn results.
const memoryPreviewLength = 50

// maxPreviewedMemories bounds how many previews a turn result carries.
const maxPreviewedMemories = 3

// Capabilities bundles the components a turn needs. All fields are
// required. The bundle is constructed once at startup and torn down once
// at shutdown; the engine holds no other shared state.
type Capabilities struct {
	Tone     *tone.Analyzer
	Memory   *memory.Store
	Prompts  *persona.Builder
	Shaper   *persona.Shaper
	Provider provider.Provider
	History  session.Store
}

// Config tunes per-turn behavior.
type Config struct {
	// HistoryWindow is how many recent messages join the provider context.
	HistoryWindow int

	// TokenBudget caps the estimated context size sent to the provider.
	TokenBudget int

	// MaxTokens caps the provider's response length.
	MaxTokens int

	// RecallLimit caps memories recalled per turn. Zero uses the memory
	// store's default.
	RecallLimit int

	// ExtractionTimeout bounds the background extraction call.
	ExtractionTimeout time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:     10,
		TokenBudget:       4000,
		MaxTokens:         1000,
		ExtractionTimeout: 30 * time.Second,
	}
}

// Engine runs conversation turns.
type Engine struct {
	caps   Capabilities
	cfg    Config
	logger *zap.Logger
	locks  *sessionLocks
	now    func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithConfig overrides the default tuning.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over a complete capability bundle.
func NewEngine(caps Capabilities, opts ...Option) (*Engine, error) {
	switch {
	case caps.Tone == nil:
		return nil, fmt.Errorf("engine: tone analyzer is required")
	case caps.Memory == nil:
		return nil, fmt.Errorf("engine: memory store is required")
	case caps.Prompts == nil:
		return nil, fmt.Errorf("engine: prompt builder is required")
	case caps.Shaper == nil:
		return nil, fmt.Errorf("engine: response shaper is required")
	case caps.Provider == nil:
		return nil, fmt.Errorf("engine: provider is required")
	case caps.History == nil:
		return nil, fmt.Errorf("engine: history store is required")
	}

	e := &Engine{
		caps:   caps,
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
		locks:  newSessionLocks(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ProcessTurn runs one turn end to end and always returns a well-formed
// result for pipeline failures; the error return is reserved for malformed
// input and context cancellation.
//
// Turns within one (user, session) pair are serialized through memory
// extraction, so a follow-up turn's recall sees the previous turn's
// extracted memories. Distinct sessions run concurrently. The returned
// result is ready before extraction finishes; extraction continues on a
// detached context.
func (e *Engine) ProcessTurn(ctx context.Context, req core.TurnRequest) (*core.TurnResult, error) {
	start := e.now()
	if req.UserID == "" {
		return nil, fmt.Errorf("process turn: empty user ID")
	}
	if req.Message == "" {
		return nil, fmt.Errorf("process turn: empty message")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	logger := e.logger.With(
		zap.String("user_id", req.UserID),
		zap.String("session_id", sessionID),
	)

	state := StateReceived
	sig := e.caps.Tone.Analyze(req.Message)
	state = StateToneAnalyzed
	logger.Debug("turn advanced", zap.Stringer("state", state),
		zap.String("primary_tone", sig.PrimaryTone))

	// Serialize recall through extraction per session.
	release := e.locks.acquire(req.UserID, sessionID)

	memories, err := e.caps.Memory.Recall(ctx, req.UserID, req.Message, req.RecentContext, e.cfg.RecallLimit)
	if err != nil {
		release()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("memory recall failed, turn failed", zap.Error(err))
		return e.failedResult(sessionID, start), nil
	}
	state = StateMemoriesRecalled

	profile, err := e.caps.Memory.Profile(ctx, req.UserID)
	if err != nil {
		// Profile is best-effort enrichment; the default keeps the turn going.
		logger.Warn("profile derivation failed, using defaults", zap.Error(err))
		profile = core.DefaultProfile()
	}
	state = StateProfileLoaded

	prompt := e.caps.Prompts.Build(profile, sig, memories)
	state = StatePromptBuilt

	history, err := e.caps.History.Recent(ctx, sessionID, e.cfg.HistoryWindow)
	if err != nil {
		logger.Warn("history fetch failed, continuing without it", zap.Error(err))
		history = nil
	}
	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: prompt})
	messages = append(messages, history...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Message})
	messages = provider.Compress(messages, e.cfg.TokenBudget)

	temperature := e.temperature(sig, profile)
	reply, err := e.caps.Provider.Generate(ctx, messages, temperature, e.cfg.MaxTokens)
	if err != nil {
		if ctx.Err() != nil {
			release()
			return nil, ctx.Err()
		}
		// Recovered failure: substitute the fallback and keep going.
		logger.Warn("provider failed, substituting fallback", zap.Error(err))
		reply = &provider.Reply{Content: FallbackResponse, TokensUsed: 0, ModelUsed: "fallback"}
	}
	state = StateResponseGenerated

	shaped := e.caps.Shaper.Shape(reply.Content, profile, sig, memories)
	state = StateResponseShaped

	if err := e.caps.History.Append(ctx, sessionID, core.Message{Role: core.RoleUser, Content: req.Message}); err != nil {
		logger.Warn("failed to record user message", zap.Error(err))
	}
	if err := e.caps.History.Append(ctx, sessionID, core.Message{Role: core.RoleAssistant, Content: shaped}); err != nil {
		logger.Warn("failed to record assistant message", zap.Error(err))
	}

	// Extraction is background enrichment on a detached context: the turn
	// result does not wait for it, but the session lock does, preserving
	// the recall-after-extract ordering for the next turn.
	go func() {
		defer release()
		ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ExtractionTimeout)
		defer cancel()
		if _, err := e.caps.Memory.ExtractAndStore(ectx, req.UserID, req.Message, shaped); err != nil {
			logger.Warn("memory extraction failed", zap.Error(err))
		}
	}()
	state = StateMemoriesExtracted

	result := &core.TurnResult{
		Response:         shaped,
		SessionID:        sessionID,
		ToneUsed:         responseTone(sig),
		EmotionsDetected: sig.Emotions,
		MemoriesRecalled: previews(memories),
		TokensUsed:       reply.TokensUsed,
		Elapsed:          e.now().Sub(start),
	}
	state = StateCompleted
	logger.Info("turn completed",
		zap.Stringer("state", state),
		zap.String("tone_used", result.ToneUsed),
		zap.Int("memories_recalled", len(memories)),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

// failedResult is the Failed terminal: the same fallback text as a provider
// failure, with empty memory and emotion fields.
func (e *Engine) failedResult(sessionID string, start time.Time) *core.TurnResult {
	return &core.TurnResult{
		Response:         FallbackResponse,
		SessionID:        sessionID,
		ToneUsed:         fallbackTone,
		EmotionsDetected: map[string]float64{},
		MemoriesRecalled: []string{},
		TokensUsed:       0,
		Elapsed:          e.now().Sub(start),
	}
}

// temperature adapts sampling to the user's emotional state and style:
// lower for sadness, higher for joy, nudged down for formal users and up
// for casual ones, clamped to [0.1, 1.0].
func (e *Engine) temperature(sig tone.Signal, profile core.UserProfile) float64 {
	t := 0.7
	switch {
	case sig.Emotions[tone.EmotionSadness] > 0.6:
		t = 0.5
	case sig.Emotions[tone.EmotionJoy] > 0.6:
		t = 0.8
	}
	switch profile.CommunicationStyle {
	case "formal":
		t -= 0.1
	case "casual":
		t += 0.1
	}
	if t < 0.1 {
		t = 0.1
	}
	if t > 1.0 {
		t = 1.0
	}
	return t
}

// responseTone picks the label describing how the assistant answered:
// mirror strong emotion first, then match the message's register.
func responseTone(sig tone.Signal) string {
	switch {
	case sig.Emotions[tone.EmotionSadness] > 0.6:
		return "empathetic"
	case sig.Emotions[tone.EmotionJoy] > 0.6:
		return "enthusiastic"
	case sig.Emotions[tone.EmotionAnger] > 0.5:
		return "calming"
	case sig.Formality == tone.FormalityFormal:
		return "professional"
	case sig.Formality == tone.FormalityCasual:
		return "friendly"
	default:
		return "warm"
	}
}

func previews(memories []memory.Recalled) []string {
	n := len(memories)
	if n > maxPreviewedMemories {
		n = maxPreviewedMemories
	}
	out := make([]string, 0, n)
	for _, rec := range memories[:n] {
		content := rec.Memory.Content
		runes := []rune(content)
		if len(runes) > memoryPreviewLength {
			content = string(runes[:memoryPreviewLength]) + "..."
		}
		out = append(out, content)
	}
	return out
}
