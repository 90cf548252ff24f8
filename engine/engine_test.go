package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/memory"
	"github.com/amicalabs/amica/memory/embedder/mock"
	chromemindex "github.com/amicalabs/amica/memory/index/chromem"
	"github.com/amicalabs/amica/persona"
	"github.com/amicalabs/amica/provider"
	"github.com/amicalabs/amica/session"
	"github.com/amicalabs/amica/tone"
)

// failingEmbedder breaks every embedding call.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding model offline")
}

func (failingEmbedder) Dimensions() int { return 3 }

func newTestEngine(t *testing.T, prov provider.Provider, embedder memory.Embedder) *Engine {
	t.Helper()
	if embedder == nil {
		embedder = mock.New(0)
	}
	store := memory.NewStore(embedder, chromemindex.New(), prov)
	// Transitions off so shaped output is stable across runs.
	shaper := persona.NewShaper(
		persona.WithRand(rand.New(rand.NewSource(7))),
		persona.WithTransitionProbability(0),
	)
	e, err := NewEngine(Capabilities{
		Tone:     tone.NewAnalyzer(),
		Memory:   store,
		Prompts:  persona.NewBuilder(),
		Shaper:   shaper,
		Provider: prov,
		History:  session.NewInMemory(),
	})
	require.NoError(t, err)
	return e
}

// scriptedProvider answers extraction calls with the given JSON and every
// other call with reply.
func scriptedProvider(extractionJSON, reply string) *provider.Mock {
	return provider.NewMock("scripted").Respond(func(messages []core.Message, temperature float64, maxTokens int) (*provider.Reply, error) {
		if len(messages) > 0 && strings.Contains(messages[0].Content, "memory extraction expert") {
			return &provider.Reply{Content: extractionJSON, ModelUsed: "scripted"}, nil
		}
		return &provider.Reply{Content: reply, TokensUsed: 12, ModelUsed: "scripted"}, nil
	})
}

// generationCalls filters out extraction calls from the mock's record.
func generationCalls(m *provider.Mock) []provider.MockCall {
	var out []provider.MockCall
	for _, call := range m.Calls() {
		if len(call.Messages) > 0 && strings.Contains(call.Messages[0].Content, "empathetic and human-like AI assistant") {
			out = append(out, call)
		}
	}
	return out
}

func TestProcessTurnValidation(t *testing.T) {
	e := newTestEngine(t, provider.NewMock(""), nil)
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, core.TurnRequest{UserID: "", Message: "hello"})
	assert.Error(t, err)

	_, err = e.ProcessTurn(ctx, core.TurnRequest{UserID: "u1", Message: ""})
	assert.Error(t, err)
}

func TestProcessTurnAssignsSessionID(t *testing.T) {
	e := newTestEngine(t, scriptedProvider("[]", "Hello!"), nil)

	result, err := e.ProcessTurn(context.Background(), core.TurnRequest{UserID: "u1", Message: "What time is it?"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)

	again, err := e.ProcessTurn(context.Background(), core.TurnRequest{
		UserID: "u1", SessionID: "fixed-session", Message: "What time is it?",
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-session", again.SessionID)
}

func TestProcessTurnRecordsHistory(t *testing.T) {
	prov := scriptedProvider("[]", "It's noon.")
	e := newTestEngine(t, prov, nil)

	result, err := e.ProcessTurn(context.Background(), core.TurnRequest{UserID: "u1", Message: "What time is it?"})
	require.NoError(t, err)

	history, err := e.caps.History.Recent(context.Background(), result.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "What time is it?", history[0].Content)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Response, history[1].Content)
}

func TestProcessTurnRecallsAcrossTurns(t *testing.T) {
	extraction := `[{"content": "Loves science fiction books", "type": "preference", "importance": 8, "reasoning": "stated directly"}]`
	prov := scriptedProvider(extraction, "How about Dune.")
	e := newTestEngine(t, prov, nil)
	ctx := context.Background()

	first, err := e.ProcessTurn(ctx, core.TurnRequest{
		UserID:  "alice",
		Message: "Hi, my name is Alice and I love reading science fiction.",
	})
	require.NoError(t, err)
	assert.Empty(t, first.MemoriesRecalled)

	// The session lock holds until the first turn's extraction lands, so
	// this recall is guaranteed to see the extracted memory.
	second, err := e.ProcessTurn(ctx, core.TurnRequest{
		UserID:    "alice",
		SessionID: first.SessionID,
		Message:   "Can you recommend a science fiction book?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, second.MemoriesRecalled)
	assert.Contains(t, second.MemoriesRecalled, "Loves science fiction books")

	// The second generation call carries the first exchange as history.
	calls := generationCalls(prov)
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Messages, 4)
	assert.Contains(t, calls[1].Messages[0].Content, "Loves science fiction books")
}

func TestProcessTurnSadMessage(t *testing.T) {
	prov := scriptedProvider("[]", "I'm sorry to hear that.")
	e := newTestEngine(t, prov, nil)

	result, err := e.ProcessTurn(context.Background(), core.TurnRequest{
		UserID:  "u1",
		Message: "I'm feeling really sad and depressed today",
	})
	require.NoError(t, err)
	assert.Equal(t, "empathetic", result.ToneUsed)
	assert.Equal(t, "I'm sorry to hear that.", result.Response)
	assert.Greater(t, result.EmotionsDetected[tone.EmotionSadness], 0.6)

	calls := generationCalls(prov)
	require.Len(t, calls, 1)
	assert.InDelta(t, 0.5, calls[0].Temperature, 1e-9)
}

func TestProcessTurnProviderFailureFallsBack(t *testing.T) {
	prov := provider.NewMock("down").Fail(errors.New("all circuits busy"))
	e := newTestEngine(t, prov, nil)

	result, err := e.ProcessTurn(context.Background(), core.TurnRequest{
		UserID:  "u1",
		Message: "What time is it?",
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, result.Response)
	assert.Zero(t, result.TokensUsed)
	assert.Equal(t, "warm", result.ToneUsed)
}

func TestProcessTurnRecallFailure(t *testing.T) {
	e := newTestEngine(t, provider.NewMock(""), failingEmbedder{})

	result, err := e.ProcessTurn(context.Background(), core.TurnRequest{
		UserID:  "u1",
		Message: "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, result.Response)
	assert.Equal(t, "apologetic", result.ToneUsed)
	assert.Empty(t, result.MemoriesRecalled)
	assert.Empty(t, result.EmotionsDetected)
	assert.Zero(t, result.TokensUsed)
}

func TestProcessTurnCancelledContext(t *testing.T) {
	e := newTestEngine(t, provider.NewMock(""), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ProcessTurn(ctx, core.TurnRequest{UserID: "u1", Message: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineRequiresAllCapabilities(t *testing.T) {
	full := Capabilities{
		Tone:     tone.NewAnalyzer(),
		Memory:   memory.NewStore(mock.New(0), chromemindex.New(), nil),
		Prompts:  persona.NewBuilder(),
		Shaper:   persona.NewShaper(),
		Provider: provider.NewMock(""),
		History:  session.NewInMemory(),
	}

	for name, strip := range map[string]func(*Capabilities){
		"tone":     func(c *Capabilities) { c.Tone = nil },
		"memory":   func(c *Capabilities) { c.Memory = nil },
		"prompts":  func(c *Capabilities) { c.Prompts = nil },
		"shaper":   func(c *Capabilities) { c.Shaper = nil },
		"provider": func(c *Capabilities) { c.Provider = nil },
		"history":  func(c *Capabilities) { c.History = nil },
	} {
		caps := full
		strip(&caps)
		_, err := NewEngine(caps)
		assert.Error(t, err, name)
	}

	_, err := NewEngine(full)
	assert.NoError(t, err)
}

func TestTemperature(t *testing.T) {
	e := newTestEngine(t, provider.NewMock(""), nil)
	neutral := core.DefaultProfile()

	cases := []struct {
		name    string
		sig     tone.Signal
		profile core.UserProfile
		want    float64
	}{
		{"baseline", tone.Signal{Emotions: map[string]float64{}}, neutral, 0.7},
		{"sad", tone.Signal{Emotions: map[string]float64{tone.EmotionSadness: 0.7}}, neutral, 0.5},
		{"joyful", tone.Signal{Emotions: map[string]float64{tone.EmotionJoy: 0.7}}, neutral, 0.8},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, e.temperature(tc.sig, tc.profile), 1e-9, tc.name)
	}

	formal := neutral
	formal.CommunicationStyle = "formal"
	assert.InDelta(t, 0.6, e.temperature(tone.Signal{Emotions: map[string]float64{}}, formal), 1e-9)
	assert.InDelta(t, 0.4, e.temperature(tone.Signal{Emotions: map[string]float64{tone.EmotionSadness: 0.7}}, formal), 1e-9)

	casual := neutral
	casual.CommunicationStyle = "casual"
	assert.InDelta(t, 0.8, e.temperature(tone.Signal{Emotions: map[string]float64{}}, casual), 1e-9)
	assert.InDelta(t, 0.9, e.temperature(tone.Signal{Emotions: map[string]float64{tone.EmotionJoy: 0.7}}, casual), 1e-9)
}

func TestResponseTone(t *testing.T) {
	cases := []struct {
		name string
		sig  tone.Signal
		want string
	}{
		{"sadness wins", tone.Signal{Emotions: map[string]float64{tone.EmotionSadness: 0.7}}, "empathetic"},
		{"joy", tone.Signal{Emotions: map[string]float64{tone.EmotionJoy: 0.7}}, "enthusiastic"},
		{"anger", tone.Signal{Emotions: map[string]float64{tone.EmotionAnger: 0.6}}, "calming"},
		{"formal register", tone.Signal{Emotions: map[string]float64{}, Formality: tone.FormalityFormal}, "professional"},
		{"casual register", tone.Signal{Emotions: map[string]float64{}, Formality: tone.FormalityCasual}, "friendly"},
		{"default", tone.Signal{Emotions: map[string]float64{}, Formality: tone.FormalityNeutral}, "warm"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, responseTone(tc.sig), tc.name)
	}
}

func TestPreviews(t *testing.T) {
	long := strings.Repeat("x", 60)
	memories := []memory.Recalled{
		{Memory: memory.Memory{Content: "short"}},
		{Memory: memory.Memory{Content: long}},
		{Memory: memory.Memory{Content: "third"}},
		{Memory: memory.Memory{Content: "fourth never shown"}},
	}

	out := previews(memories)
	require.Len(t, out, 3)
	assert.Equal(t, "short", out[0])
	assert.Equal(t, strings.Repeat("x", 50)+"...", out[1])
	assert.Equal(t, "third", out[2])
}

func TestSessionLocksSerialize(t *testing.T) {
	locks := newSessionLocks()

	release := locks.acquire("u1", "s1")

	acquired := make(chan struct{})
	go func() {
		r := locks.acquire("u1", "s1")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestSessionLocksIndependentKeys(t *testing.T) {
	locks := newSessionLocks()

	release := locks.acquire("u1", "s1")
	defer release()

	done := make(chan struct{})
	go func() {
		r := locks.acquire("u1", "s2")
		r()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different session key should not block")
	}
}

func TestSessionLocksCleanup(t *testing.T) {
	locks := newSessionLocks()

	release := locks.acquire("u1", "s1")
	release()
	release() // double release is safe

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries)
}

func TestSessionLocksWait(t *testing.T) {
	locks := newSessionLocks()
	var order []int
	var mu sync.Mutex

	release := locks.acquire("u1", "s1")
	go func() {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		release()
	}()

	r2 := locks.acquire("u1", "s1")
	mu.Lock()
	order = append(order, 2)
	mu.Unlock()
	r2()

	assert.Equal(t, []int{1, 2}, order)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "received", StateReceived.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
