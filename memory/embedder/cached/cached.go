// Package cached wraps any embedder with a ristretto cache keyed by the
// input text. Embedding is the most expensive step of both recall and
// storage, and the same text recurs often (repeated queries, access-bump
// re-upserts), so a small cache removes most model invocations.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/amicalabs/amica/memory"
)

// Embedder decorates an inner embedder with an in-process cache. Ristretto
// is lossy under pressure; a miss just falls through to the inner embedder.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache holding roughly maxEntries embeddings.
func New(inner memory.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or computes and caches it.
// Callers must not mutate the returned slice.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, 1)
	return vec, nil
}

// Dimensions reports the inner embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache's resources.
func (e *Embedder) Close() {
	e.cache.Close()
}
