package session

import (
	"context"
	"sync"

	"github.com/amicalabs/amica/core"
)

// InMemory is a thread-safe in-process Store. History grows unbounded; it
// is meant for tests and single-process demos, not long-lived deployments.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[string][]core.Message),
	}
}

// Append adds a message to the session's transcript.
func (s *InMemory) Append(ctx context.Context, sessionID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

// Recent returns a copy of the last n messages, oldest first. Callers may
// mutate the returned slice freely.
func (s *InMemory) Recent(ctx context.Context, sessionID string, n int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[sessionID]
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]core.Message, len(history))
	copy(out, history)
	return out, nil
}

// Exists reports whether the session has recorded messages.
func (s *InMemory) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}
