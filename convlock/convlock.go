// Package convlock implements the per-conversation write lock required by
// §5: writers targeting the same conversation are serialized; operations on
// disjoint conversations proceed independently. A single-process deployment
// can use the inmemory backend; a multi-process deployment sharing one
// TurnStore backend (e.g. several agentcore instances against the same
// Postgres/SQLite database) needs the redislock backend instead.
package convlock

import (
	"context"

	"github.com/lookatitude/agentcore/ids"
)

// Locker serializes writers per conversation. Acquire blocks until the lock
// is held or ctx is canceled; the returned func releases it. Implementations
// must be safe for concurrent use by multiple goroutines locking different
// conversation ids simultaneously.
type Locker interface {
	Acquire(ctx context.Context, conversationID ids.ConversationID) (release func(), err error)
}
