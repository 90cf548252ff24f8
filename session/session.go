// Package session stores conversation transcripts. The Store interface is
// the persistence boundary: the in-memory implementation serves tests and
// demos, and database-backed stores implement the same interface in
// production.
package session

import (
	"context"

	"github.com/amicalabs/amica/core"
)

// Store holds per-session message history.
type Store interface {
	// Append adds one message to the session, creating it if needed.
	Append(ctx context.Context, sessionID string, msg core.Message) error

	// Recent returns the last n messages in chronological order. An
	// unknown session yields an empty slice, not an error; n <= 0 returns
	// the whole transcript.
	Recent(ctx context.Context, sessionID string, n int) ([]core.Message, error)

	// Exists reports whether the session has any history.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
