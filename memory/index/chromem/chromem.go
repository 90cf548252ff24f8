// Package chromem adapts chromem-go, a pure Go embedded vector database,
// to the memory.Index interface. Suitable for local and single-process
// deployments; production systems swap in a server-backed index behind the
// same interface.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/amicalabs/amica/memory"
)

// Index stores each user's memories in a dedicated chromem collection.
//
// chromem-go has no listing or metadata-scan API, so the adapter keeps a
// registry of documents per user alongside the vector store. The registry
// holds content and metadata only; vectors live in chromem.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	registry    map[string]map[string]memory.Document
	mu          sync.RWMutex
	logger      *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Index) { i.logger = logger }
}

// New creates an in-process chromem-backed index.
func New(opts ...Option) *Index {
	idx := &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		registry:    make(map[string]map[string]memory.Document),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// collection returns the per-user collection, creating it on first use.
func (i *Index) collection(userID string) (*chromem.Collection, error) {
	i.mu.RLock()
	col, ok := i.collections[userID]
	i.mu.RUnlock()
	if ok {
		return col, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if col, ok := i.collections[userID]; ok {
		return col, nil
	}

	name := "user_" + userID
	col, err := i.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	i.collections[userID] = col
	return col, nil
}

// Upsert stores or replaces a document. chromem's AddDocument overwrites
// by ID, so the same path serves insert and update.
func (i *Index) Upsert(ctx context.Context, doc memory.Document) error {
	if doc.UserID == "" {
		return fmt.Errorf("upsert: document %s has no user ID", doc.ID)
	}
	col, err := i.collection(doc.UserID)
	if err != nil {
		return err
	}

	if err := col.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	}); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	i.mu.Lock()
	if i.registry[doc.UserID] == nil {
		i.registry[doc.UserID] = make(map[string]memory.Document)
	}
	i.registry[doc.UserID][doc.ID] = doc
	i.mu.Unlock()

	i.logger.Debug("document upserted",
		zap.String("user_id", doc.UserID),
		zap.String("id", doc.ID))
	return nil
}

// Query retrieves up to limit documents by cosine similarity, nearest
// first. chromem's where clauses cannot express the type and importance
// filters, so they apply after the vector search; with a filter the search
// scans the whole collection, so filtering never starves a qualifying
// document out of the nearest-n window.
func (i *Index) Query(ctx context.Context, vector []float32, f memory.Filter, limit int) ([]memory.Result, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("query: filter has no user ID")
	}
	if limit <= 0 {
		return nil, nil
	}
	col, err := i.collection(f.UserID)
	if err != nil {
		return nil, err
	}

	start := limit
	if f.Type != "" || f.MinImportance > 0 {
		if c := col.Count(); c > start {
			start = c
		}
	}

	// chromem requires nResults <= collection size; shrink until it
	// accepts or the collection proves empty.
	var hits []chromem.Result
	for n := start; n >= 1; n-- {
		hits, err = col.QueryEmbedding(ctx, vector, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]memory.Result, 0, len(hits))
	for _, hit := range hits {
		if !matchesFilter(hit.Metadata, f) {
			continue
		}
		results = append(results, memory.Result{
			ID:        hit.ID,
			Content:   hit.Content,
			Embedding: hit.Embedding,
			Metadata:  hit.Metadata,
			Distance:  1 - float64(hit.Similarity),
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}

	i.logger.Debug("index queried",
		zap.String("user_id", f.UserID),
		zap.Int("hits", len(results)))
	return results, nil
}

// List returns documents matching the filter, most recently created first,
// from the registry. No vector search; Distance is 0.
func (i *Index) List(ctx context.Context, f memory.Filter, limit int) ([]memory.Result, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("list: filter has no user ID")
	}

	i.mu.RLock()
	docs := make([]memory.Document, 0, len(i.registry[f.UserID]))
	for _, doc := range i.registry[f.UserID] {
		docs = append(docs, doc)
	}
	i.mu.RUnlock()

	results := make([]memory.Result, 0, len(docs))
	for _, doc := range docs {
		if !matchesFilter(doc.Metadata, f) {
			continue
		}
		results = append(results, memory.Result{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}

	sort.Slice(results, func(a, b int) bool {
		ta := createdAt(results[a].Metadata)
		tb := createdAt(results[b].Metadata)
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return results[a].ID < results[b].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a document from both chromem and the registry.
func (i *Index) Delete(ctx context.Context, userID string, id string) error {
	col, err := i.collection(userID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}

	i.mu.Lock()
	delete(i.registry[userID], id)
	i.mu.Unlock()
	return nil
}

// Close is a no-op; chromem keeps everything in process memory.
func (i *Index) Close() error {
	return nil
}

func matchesFilter(metadata map[string]string, f memory.Filter) bool {
	if uid, ok := metadata["user_id"]; ok && uid != f.UserID {
		return false
	}
	if f.Type != "" && metadata["memory_type"] != string(f.Type) {
		return false
	}
	if f.MinImportance > 0 {
		importance, err := strconv.Atoi(metadata["importance"])
		if err != nil || importance < f.MinImportance {
			return false
		}
	}
	return true
}

func createdAt(metadata map[string]string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, metadata["created_at"])
	return t
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
