package chromem

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amicalabs/amica/memory"
)

func doc(id, userID, content string, embedding []float32, memType string, importance int, created time.Time) memory.Document {
	return memory.Document{
		ID:        id,
		UserID:    userID,
		Content:   content,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":          userID,
			"memory_type":      memType,
			"importance":       strconv.Itoa(importance),
			"created_at":       created.UTC().Format(time.RFC3339Nano),
			"last_accessed_at": created.UTC().Format(time.RFC3339Nano),
			"access_count":     "0",
		},
	}
}

func TestUpsertAndQuery(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, doc("a", "u1", "likes tea", []float32{1, 0, 0}, "preference", 5, now)))
	require.NoError(t, idx.Upsert(ctx, doc("b", "u1", "works nights", []float32{0, 1, 0}, "fact", 5, now)))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-5)
	assert.Equal(t, "b", results[1].ID)
	assert.Greater(t, results[1].Distance, 0.5)
}

func TestQueryShrinksOverLargeLimit(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, doc("only", "u1", "single memory", []float32{1, 0, 0}, "fact", 5, time.Now())))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1"}, 15)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].ID)
}

func TestQueryEmptyCollection(t *testing.T) {
	idx := New()

	results, err := idx.Query(context.Background(), []float32{1, 0, 0}, memory.Filter{UserID: "nobody"}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryZeroLimit(t *testing.T) {
	idx := New()

	results, err := idx.Query(context.Background(), []float32{1, 0, 0}, memory.Filter{UserID: "u1"}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryRequiresUserID(t *testing.T) {
	idx := New()

	_, err := idx.Query(context.Background(), []float32{1, 0, 0}, memory.Filter{}, 5)
	assert.Error(t, err)
}

func TestQueryFilters(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, doc("important", "u1", "allergic to peanuts", []float32{1, 0, 0}, "fact", 9, now)))
	require.NoError(t, idx.Upsert(ctx, doc("trivial", "u1", "mentioned the weather", []float32{0.9, 0.1, 0}, "context", 2, now)))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1", MinImportance: 3}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "important", results[0].ID)

	results, err = idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1", Type: memory.TypeContext}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "trivial", results[0].ID)
}

func TestQueryFilterScansWholeCollection(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	// Three low-importance documents sit nearest the query vector; the
	// qualifying one is farther away than all of them.
	require.NoError(t, idx.Upsert(ctx, doc("near-1", "u1", "small talk", []float32{1, 0, 0}, "context", 2, now)))
	require.NoError(t, idx.Upsert(ctx, doc("near-2", "u1", "more small talk", []float32{0.95, 0.31, 0}, "context", 2, now)))
	require.NoError(t, idx.Upsert(ctx, doc("near-3", "u1", "weather again", []float32{0.9, 0.43, 0}, "context", 2, now)))
	require.NoError(t, idx.Upsert(ctx, doc("important", "u1", "allergic to peanuts", []float32{0, 1, 0}, "fact", 9, now)))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1", MinImportance: 3}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "important", results[0].ID)
}

func TestQueryFilteredResultsHonorLimit(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	vectors := [][]float32{{1, 0, 0}, {0.9, 0.43, 0}, {0.7, 0.71, 0}, {0, 1, 0}}
	for i, v := range vectors {
		require.NoError(t, idx.Upsert(ctx, doc("m"+strconv.Itoa(i), "u1", "fact", v, "fact", 8, now)))
	}

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1", MinImportance: 3}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m0", results[0].ID)
	assert.Equal(t, "m1", results[1].ID)
}

func TestUsersAreIsolated(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, doc("alice-1", "alice", "plays violin", []float32{1, 0, 0}, "interest", 6, now)))
	require.NoError(t, idx.Upsert(ctx, doc("bob-1", "bob", "plays drums", []float32{1, 0, 0}, "interest", 6, now)))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "alice"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice-1", results[0].ID)

	listed, err := idx.List(ctx, memory.Filter{UserID: "bob"}, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "bob-1", listed[0].ID)
}

func TestListOrderAndLimit(t *testing.T) {
	idx := New()
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Upsert(ctx, doc("oldest", "u1", "first", []float32{1, 0, 0}, "fact", 5, base)))
	require.NoError(t, idx.Upsert(ctx, doc("middle", "u1", "second", []float32{0, 1, 0}, "fact", 5, base.Add(time.Minute))))
	require.NoError(t, idx.Upsert(ctx, doc("newest", "u1", "third", []float32{0, 0, 1}, "fact", 5, base.Add(2*time.Minute))))

	results, err := idx.List(ctx, memory.Filter{UserID: "u1"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "newest", results[0].ID)
	assert.Equal(t, "middle", results[1].ID)
	assert.Equal(t, "oldest", results[2].ID)

	limited, err := idx.List(ctx, memory.Filter{UserID: "u1"}, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "newest", limited[0].ID)
}

func TestUpsertOverwritesByID(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, doc("m1", "u1", "draft content", []float32{1, 0, 0}, "fact", 3, now)))
	require.NoError(t, idx.Upsert(ctx, doc("m1", "u1", "final content", []float32{1, 0, 0}, "fact", 7, now)))

	results, err := idx.List(ctx, memory.Filter{UserID: "u1"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "final content", results[0].Content)
	assert.Equal(t, "7", results[0].Metadata["importance"])
}

func TestUpsertRequiresUserID(t *testing.T) {
	idx := New()

	err := idx.Upsert(context.Background(), memory.Document{ID: "m1", Content: "orphan"})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	idx := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, doc("m1", "u1", "ephemeral", []float32{1, 0, 0}, "context", 3, now)))
	require.NoError(t, idx.Delete(ctx, "u1", "m1"))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, memory.Filter{UserID: "u1"}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	listed, err := idx.List(ctx, memory.Filter{UserID: "u1"}, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
