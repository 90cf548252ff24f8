// Package amica is a memory-augmented, personality-adaptive conversation
// engine. Each turn analyzes the user's tone, recalls relevant memories
// about them, builds a personality-matched prompt, generates a response
// through a provider failover chain, shapes the response, and extracts new
// memories from the exchange in the background.
//
// The subpackages are usable on their own; New wires the standard bundle
// for the common case:
//
//	cfg, _ := config.Load()
//	bundle, err := amica.New(cfg)
//	if err != nil { ... }
//	defer bundle.Close()
//	result, err := bundle.Engine.ProcessTurn(ctx, core.TurnRequest{
//		UserID:  "alice",
//		Message: "Hi, I love reading science fiction.",
//	})
package amica

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/amicalabs/amica/config"
	"github.com/amicalabs/amica/engine"
	"github.com/amicalabs/amica/memory"
	"github.com/amicalabs/amica/memory/embedder/cached"
	"github.com/amicalabs/amica/memory/embedder/mock"
	"github.com/amicalabs/amica/memory/index/chromem"
	"github.com/amicalabs/amica/persona"
	"github.com/amicalabs/amica/provider"
	"github.com/amicalabs/amica/provider/anthropic"
	"github.com/amicalabs/amica/provider/openai"
	"github.com/amicalabs/amica/session"
	"github.com/amicalabs/amica/tone"
)

// Bundle is the assembled capability set. Construct once at startup and
// Close once at shutdown.
type Bundle struct {
	Engine  *engine.Engine
	Memory  *memory.Store
	History session.Store

	cache *cached.Embedder
}

// Options override the bundle's default components.
type Options struct {
	// Logger for all components. Defaults to a no-op logger.
	Logger *zap.Logger

	// Embedder overrides the default. Without one the bundle uses the
	// deterministic mock embedder, which captures lexical overlap only;
	// real deployments should supply a semantic embedder.
	Embedder memory.Embedder

	// Provider overrides the failover chain assembled from configured
	// API keys.
	Provider provider.Provider

	// History overrides the in-memory session store.
	History session.Store
}

// New assembles the standard bundle from configuration.
func New(cfg *config.Config, opts ...func(*Options)) (*Bundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("amica: nil config")
	}
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base := o.Embedder
	if base == nil {
		base = mock.New(0)
	}
	cache, err := cached.New(base, cfg.EmbedCacheSize)
	if err != nil {
		return nil, err
	}

	prov := o.Provider
	if prov == nil {
		prov, err = buildProviderChain(cfg, logger)
		if err != nil {
			cache.Close()
			return nil, err
		}
	}

	index := chromem.New(chromem.WithLogger(logger))
	store := memory.NewStore(cache, index, prov,
		memory.WithLogger(logger),
		memory.WithConfig(memory.Config{
			SimilarityWeight:    cfg.SimilarityWeight,
			ImportanceWeight:    cfg.ImportanceWeight,
			RecencyWeight:       cfg.RecencyWeight,
			MinSimilarity:       cfg.MinSimilarity,
			MinImportance:       cfg.MinImportance,
			RecallLimit:         cfg.RecallLimit,
			ProfileWindow:       memory.DefaultConfig().ProfileWindow,
			ExtractionMaxTokens: memory.DefaultConfig().ExtractionMaxTokens,
		}))

	history := o.History
	if history == nil {
		history = session.NewInMemory()
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.HistoryWindow = cfg.HistoryWindow
	engineCfg.TokenBudget = cfg.TokenBudget
	engineCfg.MaxTokens = cfg.MaxTokens
	engineCfg.RecallLimit = cfg.RecallLimit

	eng, err := engine.NewEngine(engine.Capabilities{
		Tone:     tone.NewAnalyzer(),
		Memory:   store,
		Prompts:  persona.NewBuilder(),
		Shaper:   persona.NewShaper(persona.WithTransitionProbability(cfg.TransitionProbability)),
		Provider: prov,
		History:  history,
	}, engine.WithLogger(logger), engine.WithConfig(engineCfg))
	if err != nil {
		cache.Close()
		return nil, err
	}

	return &Bundle{
		Engine:  eng,
		Memory:  store,
		History: history,
		cache:   cache,
	}, nil
}

// buildProviderChain assembles the failover chain from configured keys,
// primary first. With no keys configured the mock provider serves local
// development.
func buildProviderChain(cfg *config.Config, logger *zap.Logger) (provider.Provider, error) {
	var providers []provider.Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, openai.New(openai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}))
	}
	switch len(providers) {
	case 0:
		logger.Warn("no provider API keys configured, using mock provider")
		return provider.NewMock(""), nil
	case 1:
		return providers[0], nil
	default:
		return provider.NewFailover(providers, provider.WithFailoverLogger(logger)), nil
	}
}

// Close releases the bundle's resources.
func (b *Bundle) Close() error {
	b.cache.Close()
	return b.Memory.Close()
}
