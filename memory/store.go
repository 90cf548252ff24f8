package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amicalabs/amica/core"
	"github.com/amicalabs/amica/provider"
)

// Config tunes recall ranking and extraction behavior.
type Config struct {
	// Recall ranking weights. They should sum to 1.0 but are not
	// renormalized; callers own their calibration.
	SimilarityWeight float64
	ImportanceWeight float64
	RecencyWeight    float64

	// MinSimilarity drops recall candidates at or below this cosine
	// similarity.
	MinSimilarity float64

	// MinImportance is the recall floor; memories below it are never
	// recalled regardless of similarity.
	MinImportance int

	// RecallLimit caps how many memories a recall returns.
	RecallLimit int

	// ProfileWindow is how many recent memories profile derivation reads.
	ProfileWindow int

	// ExtractionMaxTokens caps the extraction model call.
	ExtractionMaxTokens int
}

// DefaultConfig returns the standard tuning. The weights are empirically
// chosen, not derived.
func DefaultConfig() Config {
	return Config{
		SimilarityWeight:    0.4,
		ImportanceWeight:    0.4,
		RecencyWeight:       0.2,
		MinSimilarity:       0.3,
		MinImportance:       3,
		RecallLimit:         5,
		ProfileWindow:       20,
		ExtractionMaxTokens: 500,
	}
}

// Store orchestrates memory operations over an Embedder, an Index, and a
// language-model provider (used only for extraction).
type Store struct {
	embedder Embedder
	index    Index
	provider provider.Provider
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithConfig overrides the default tuning.
func WithConfig(cfg Config) Option {
	return func(s *Store) { s.cfg = cfg }
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source. Tests use this to pin recency math.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. The provider may be nil when extraction is not
// used (ExtractAndStore then returns an error).
func NewStore(embedder Embedder, index Index, prov provider.Provider, opts ...Option) *Store {
	s := &Store{
		embedder: embedder,
		index:    index,
		provider: prov,
		cfg:      DefaultConfig(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store persists one memory and returns its ID. Importance is clamped to
// [1,10]; an unknown type degrades to fact.
func (s *Store) Store(ctx context.Context, userID string, content string, t Type, importance int) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("store memory: empty user ID")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("store memory: empty content")
	}
	if !ValidType(t) {
		t = TypeFact
	}
	importance = clampInt(importance, 1, 10)

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed memory content: %w: %v", core.ErrEmbeddingFailure, err)
	}

	now := s.now()
	mem := Memory{
		ID:             uuid.New().String(),
		UserID:         userID,
		Type:           t,
		Content:        content,
		Importance:     importance,
		Embedding:      embedding,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := s.index.Upsert(ctx, toDocument(mem)); err != nil {
		return "", fmt.Errorf("upsert memory: %w", err)
	}

	s.logger.Debug("memory stored",
		zap.String("user_id", userID),
		zap.String("memory_id", mem.ID),
		zap.String("type", string(t)),
		zap.Int("importance", importance))
	return mem.ID, nil
}

// Recall finds the memories most relevant to query, best first. contextHint
// is optional recent-conversation text blended into the search. A limit of 0
// uses the configured default.
//
// Each returned memory has its access count incremented and last-accessed
// time refreshed as a side effect.
func (s *Store) Recall(ctx context.Context, userID string, query string, contextHint string, limit int) ([]Recalled, error) {
	if userID == "" {
		return nil, fmt.Errorf("recall: empty user ID")
	}
	if limit <= 0 {
		limit = s.cfg.RecallLimit
	}

	searchText := query
	if contextHint != "" {
		searchText = contextHint + " " + query
	}
	vector, err := s.embedder.Embed(ctx, searchText)
	if err != nil {
		return nil, fmt.Errorf("embed recall query: %w: %v", core.ErrEmbeddingFailure, err)
	}

	// Over-fetch so the similarity cutoff and re-ranking still have a full
	// candidate pool after the importance floor.
	results, err := s.index.Query(ctx, vector, Filter{
		UserID:        userID,
		MinImportance: s.cfg.MinImportance,
	}, limit*3)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	now := s.now()
	recalled := make([]Recalled, 0, len(results))
	for _, r := range results {
		similarity := 1 - r.Distance
		if similarity <= s.cfg.MinSimilarity {
			continue
		}
		mem := fromResult(r)
		recalled = append(recalled, Recalled{
			Memory:     mem,
			Similarity: similarity,
			Score:      s.score(similarity, mem, now),
		})
	}

	sort.SliceStable(recalled, func(i, j int) bool {
		if recalled[i].Score != recalled[j].Score {
			return recalled[i].Score > recalled[j].Score
		}
		return recalled[i].Memory.LastAccessedAt.After(recalled[j].Memory.LastAccessedAt)
	})
	if len(recalled) > limit {
		recalled = recalled[:limit]
	}

	for i := range recalled {
		recalled[i].Memory.AccessCount++
		recalled[i].Memory.LastAccessedAt = now
		if err := s.index.Upsert(ctx, toDocument(recalled[i].Memory)); err != nil {
			// Access bookkeeping must not fail the recall.
			s.logger.Warn("access bump failed",
				zap.String("memory_id", recalled[i].Memory.ID),
				zap.Error(err))
		}
	}

	s.logger.Debug("memories recalled",
		zap.String("user_id", userID),
		zap.Int("count", len(recalled)))
	return recalled, nil
}

// score blends similarity, importance, and recency. Recency decays as the
// reciprocal of age in days, floored at one day.
func (s *Store) score(similarity float64, mem Memory, now time.Time) float64 {
	ageDays := now.Sub(mem.CreatedAt).Hours() / 24
	recency := 1 / math.Max(ageDays, 1)
	return s.cfg.SimilarityWeight*similarity +
		s.cfg.ImportanceWeight*(float64(mem.Importance)/10) +
		s.cfg.RecencyWeight*recency
}

// Forget removes one memory permanently.
func (s *Store) Forget(ctx context.Context, userID string, memoryID string) error {
	if err := s.index.Delete(ctx, userID, memoryID); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// Close releases the index's resources.
func (s *Store) Close() error {
	return s.index.Close()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
