// Package inmemory implements convlock.Locker with one sync.Mutex per
// conversation, for single-process deployments.
package inmemory

import (
	"context"
	"sync"

	"github.com/lookatitude/agentcore/convlock"
	"github.com/lookatitude/agentcore/ids"
)

// Locker is a map of per-conversation mutexes, guarded by one top-level
// mutex for the map itself.
type Locker struct {
	mu    sync.Mutex
	locks map[ids.ConversationID]*sync.Mutex
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[ids.ConversationID]*sync.Mutex)}
}

var _ convlock.Locker = (*Locker)(nil)

func (l *Locker) lockFor(conversationID ids.ConversationID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[conversationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[conversationID] = m
	}
	return m
}

// Acquire blocks until the conversation's mutex is free, or ctx is canceled
// first. On cancellation it returns ctx.Err() at once; because sync.Mutex
// has no cancellable Lock, a background goroutine keeps waiting for the
// mutex and releases it as soon as it gets it. Callers on a busy conversation
// should size their context timeout generously or prefer the redis backend,
// which supports a bounded acquire loop.
func (l *Locker) Acquire(ctx context.Context, conversationID ids.ConversationID) (func(), error) {
	m := l.lockFor(conversationID)
	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
	}()
	select {
	case <-done:
		return m.Unlock, nil
	case <-ctx.Done():
		go func() { <-done; m.Unlock() }()
		return nil, ctx.Err()
	}
}
