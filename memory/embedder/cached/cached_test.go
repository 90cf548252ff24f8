package cached

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how many times Embed runs.
type countingEmbedder struct {
	calls atomic.Int64
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (c *countingEmbedder) Dimensions() int { return 3 }

func TestEmbedCachesRepeatedText(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := New(inner, 128)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello")
	require.NoError(t, err)

	// Ristretto admits entries through an async buffer, so poll until a
	// repeat lookup stops reaching the inner embedder.
	require.Eventually(t, func() bool {
		before := inner.calls.Load()
		vec, err := e.Embed(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, first, vec)
		return inner.calls.Load() == before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmbedDistinctTextsMiss(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := New(inner, 128)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.Embed(ctx, "first")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestEmbedErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model offline")}
	e, err := New(inner, 128)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.Embed(ctx, "hello")
	assert.Error(t, err)
	_, err = e.Embed(ctx, "hello")
	assert.Error(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestDimensionsPassthrough(t *testing.T) {
	e, err := New(&countingEmbedder{}, 0)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 3, e.Dimensions())
}
