// Package memory provides long-term memory for conversation users.
//
// A memory is an atomic statement about a user (a preference, fact, emotion,
// goal, interest, or piece of context) with an importance score and a vector
// embedding. Memories are namespaced by UserID for multi-user support.
//
// Architecture:
//   - Index: vector storage backend (chromem-go for local, pgvector-style
//     backends in production implement the same interface)
//   - Embedder: text-to-vector conversion (ONNX model locally, API-based
//     embedders in production)
//   - Store: orchestrates store, recall, extraction, and profiling
//
// Integration with the engine:
//   - RECALL phase: load relevant memories before the model call
//   - EXTRACT phase: mine the completed exchange for new memories
//
// Recall ranks candidates by a weighted blend of similarity, importance,
// and recency. Extraction treats model output as an untrusted payload:
// records are parsed and validated strictly, and an unusable payload
// degrades to a single low-importance context memory instead of being
// silently dropped.
package memory
