package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/ids"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return New(Config{Client: client, RetryDelay: time.Millisecond})
}

func TestAcquire_GrantsAndReleases(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	convID := ids.ConversationID("conv-1")

	release, err := l.Acquire(ctx, convID)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()

	// released, so a second acquire must not block.
	done := make(chan struct{})
	go func() {
		release2, err := l.Acquire(ctx, convID)
		require.NoError(t, err)
		release2()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire after release should not block")
	}
}

func TestAcquire_BlocksConcurrentHolders(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	convID := ids.ConversationID("conv-2")

	release, err := l.Acquire(ctx, convID)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := l.Acquire(ctx, convID)
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should not succeed while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should succeed once the first releases")
	}
}

func TestAcquire_RespectsContextCancellation(t *testing.T) {
	l := newTestLocker(t)
	convID := ids.ConversationID("conv-3")

	release, err := l.Acquire(context.Background(), convID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, convID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquire_DisjointConversationsDoNotBlock(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, ids.ConversationID("a"))
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := l.Acquire(ctx, ids.ConversationID("b"))
		require.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a disjoint conversation's lock should not block")
	}
}
