package convctx

import (
	"context"
	"runtime"

	"github.com/lookatitude/agentcore/ids"
)

// Transaction is a Context scoped to a single send/stream call. Like any
// Context it resolves the committed history on its first Messages call (not
// at Begin), buffers messages the agent produces, and either Commits them (extending storage) or Rollbacks
// them (discarding). A Transaction that is garbage-collected without either
// call logs a warning and loses its pending messages: a panic or error
// partway through a tool-call loop must never silently persist partial
// state, so losing it is the correct behavior, not a bug to suppress.
type Transaction struct {
	*Context
}

// Begin opens a Transaction against the given view.
func Begin(deps Deps, conversationID ids.ConversationID, viewID ids.ViewID) *Transaction {
	tx := &Transaction{Context: New(deps, conversationID, viewID)}
	runtime.SetFinalizer(tx, func(t *Transaction) {
		t.warnIfAbandoned()
	})
	return tx
}

func (t *Transaction) warnIfAbandoned() {
	t.mu.Lock()
	finalized := t.committed || t.rolledBack
	pendingCount := len(t.pending)
	log := t.log
	t.mu.Unlock()
	if !finalized && pendingCount > 0 && log != nil {
		log.Warn(context.Background(), "transaction dropped without commit or rollback",
			"pending_messages", pendingCount)
	}
}

// Commit flushes pending messages and disarms the finalizer.
func (t *Transaction) Commit(ctx context.Context) error {
	err := t.Context.Commit(ctx)
	runtime.SetFinalizer(t, nil)
	return err
}

// Rollback discards pending messages and disarms the finalizer.
func (t *Transaction) Rollback() {
	t.Context.Rollback()
	runtime.SetFinalizer(t, nil)
}
