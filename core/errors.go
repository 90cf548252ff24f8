package core

import "errors"

// Sentinel errors for the failure taxonomy. I/O-bound components wrap these
// with call-site context via fmt.Errorf("...: %w", err); callers branch
// with errors.Is.
var (
	// ErrEmbeddingFailure means the embedding capability was unreachable.
	// Fatal for the store/recall call that hit it; the turn recovers via
	// the engine's fallback path.
	ErrEmbeddingFailure = errors.New("embedding capability unavailable")

	// ErrProviderUnavailable means no language-model provider produced a
	// response. Always recoverable: the engine substitutes the fixed
	// fallback text.
	ErrProviderUnavailable = errors.New("language model provider unavailable")

	// ErrParseFailure means model output expected to be structured did
	// not parse or validate. Recovered inside the memory store via the
	// single-context-memory fallback; never surfaced to turn callers.
	ErrParseFailure = errors.New("structured output parse failure")

	// ErrNotFound means a referenced session or memory does not exist.
	// Surfaced to callers as an explicit absent result, not a crash.
	ErrNotFound = errors.New("not found")
)
