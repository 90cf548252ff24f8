// Package config loads the capability bundle's configuration from the
// environment. Every knob has a default, so a bare environment yields a
// working local setup (mock-friendly, no keys required).
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment-driven configuration.
type Config struct {
	// Provider credentials and models. A provider with no key is left out
	// of the failover chain.
	AnthropicAPIKey string `env:"AMICA_ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"AMICA_ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	OpenAIAPIKey    string `env:"AMICA_OPENAI_API_KEY"`
	OpenAIModel     string `env:"AMICA_OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Turn tuning.
	MaxTokens     int `env:"AMICA_MAX_TOKENS" envDefault:"1000"`
	TokenBudget   int `env:"AMICA_TOKEN_BUDGET" envDefault:"4000"`
	HistoryWindow int `env:"AMICA_HISTORY_WINDOW" envDefault:"10"`

	// Memory recall tuning.
	RecallLimit      int     `env:"AMICA_RECALL_LIMIT" envDefault:"5"`
	MinSimilarity    float64 `env:"AMICA_MIN_SIMILARITY" envDefault:"0.3"`
	MinImportance    int     `env:"AMICA_MIN_IMPORTANCE" envDefault:"3"`
	SimilarityWeight float64 `env:"AMICA_SIMILARITY_WEIGHT" envDefault:"0.4"`
	ImportanceWeight float64 `env:"AMICA_IMPORTANCE_WEIGHT" envDefault:"0.4"`
	RecencyWeight    float64 `env:"AMICA_RECENCY_WEIGHT" envDefault:"0.2"`

	// TransitionProbability is the response shaper's chance of inserting a
	// transition word into longer responses.
	TransitionProbability float64 `env:"AMICA_TRANSITION_PROBABILITY" envDefault:"0.3"`

	// EmbedCacheSize is the approximate entry capacity of the embedding
	// cache.
	EmbedCacheSize int64 `env:"AMICA_EMBED_CACHE_SIZE" envDefault:"4096"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"AMICA_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
