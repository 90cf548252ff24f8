// Package mock provides a deterministic embedder for tests and offline
// development. It hashes each word into a fixed vector slot, so texts that
// share vocabulary produce similar vectors. Useful where recall behavior
// matters but a real embedding model is unavailable; it captures lexical
// overlap only, not meaning.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder is a deterministic bag-of-words embedder.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with the given vector size. A size of 0
// defaults to 384, matching all-MiniLM-L6-v2.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Embedder{dimensions: dimensions}
}

// Embed maps each normalized word onto a vector slot by hash and returns
// the unit-normalized count vector. Never fails.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, word := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(word))
		vec[h.Sum64()%uint64(e.dimensions)]++
	}
	normalize(vec)
	return vec, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func normalize(vec []float32) {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
}
