package memory

import (
	"context"
	"strconv"
	"time"
)

// Type classifies what kind of statement a memory holds.
type Type string

const (
	TypePreference Type = "preference"
	TypeFact       Type = "fact"
	TypeEmotion    Type = "emotion"
	TypeGoal       Type = "goal"
	TypeInterest   Type = "interest"
	TypeContext    Type = "context"
)

// ValidType reports whether t is one of the six known memory types.
func ValidType(t Type) bool {
	switch t {
	case TypePreference, TypeFact, TypeEmotion, TypeGoal, TypeInterest, TypeContext:
		return true
	}
	return false
}

// Memory is one stored statement about a user.
type Memory struct {
	ID      string
	UserID  string
	Type    Type
	Content string

	// Importance in [1,10]. Drives recall ranking and pruning.
	Importance int

	Embedding []float32

	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
}

// Recalled pairs a memory with its relevance to a specific query.
type Recalled struct {
	Memory Memory

	// Similarity in [0,1] against the recall query.
	Similarity float64

	// Score is the blended ranking score the recall used.
	Score float64
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), cached (ristretto decorator),
// onnx (local all-MiniLM-L6-v2), API-based embedders in production.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Filter narrows an index query or listing.
type Filter struct {
	// UserID is required; the index never searches across users.
	UserID string

	// Type, when non-empty, restricts results to one memory type.
	Type Type

	// MinImportance, when positive, drops memories below the floor.
	MinImportance int
}

// Document is the index's storage unit. Metadata carries the memory fields
// that are not part of the vector, keyed by the metadata* constants.
type Document struct {
	ID        string
	UserID    string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Result is one index hit. Distance is 1 minus cosine similarity, so 0 is
// an exact match. Listing operations that do no vector search report 0.
type Result struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
	Distance  float64
}

// Index is the vector storage backend interface.
// Implementations: chromem (embedded, local), production vector databases.
type Index interface {
	// Upsert stores or replaces a document by ID.
	Upsert(ctx context.Context, doc Document) error

	// Query retrieves up to limit documents by vector similarity, nearest
	// first, honoring the filter.
	Query(ctx context.Context, vector []float32, f Filter, limit int) ([]Result, error)

	// List returns up to limit documents matching the filter, most
	// recently created first, without vector search. A limit of 0 means
	// no cap.
	List(ctx context.Context, f Filter, limit int) ([]Result, error)

	// Delete removes a document permanently.
	Delete(ctx context.Context, userID string, id string) error

	// Close releases resources.
	Close() error
}

// Metadata keys used when flattening a Memory into a Document.
const (
	metadataUserID       = "user_id"
	metadataType         = "memory_type"
	metadataImportance   = "importance"
	metadataCreatedAt    = "created_at"
	metadataLastAccessed = "last_accessed_at"
	metadataAccessCount  = "access_count"
)

func toDocument(m Memory) Document {
	return Document{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		Embedding: m.Embedding,
		Metadata: map[string]string{
			metadataUserID:       m.UserID,
			metadataType:         string(m.Type),
			metadataImportance:   strconv.Itoa(m.Importance),
			metadataCreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339Nano),
			metadataLastAccessed: m.LastAccessedAt.UTC().Format(time.RFC3339Nano),
			metadataAccessCount:  strconv.Itoa(m.AccessCount),
		},
	}
}

// fromResult rebuilds a Memory from an index hit. Malformed metadata fields
// fall back to zero values rather than failing the whole recall.
func fromResult(r Result) Memory {
	m := Memory{
		ID:        r.ID,
		Content:   r.Content,
		Embedding: r.Embedding,
		UserID:    r.Metadata[metadataUserID],
		Type:      Type(r.Metadata[metadataType]),
	}
	m.Importance, _ = strconv.Atoi(r.Metadata[metadataImportance])
	m.AccessCount, _ = strconv.Atoi(r.Metadata[metadataAccessCount])
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.Metadata[metadataCreatedAt])
	m.LastAccessedAt, _ = time.Parse(time.RFC3339Nano, r.Metadata[metadataLastAccessed])
	return m
}
