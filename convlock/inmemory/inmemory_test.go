package inmemory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/convlock/inmemory"
	"github.com/lookatitude/agentcore/ids"
)

func TestAcquireSerializesSameConversation(t *testing.T) {
	l := inmemory.New()
	convID := ids.ConversationID("conv-1")
	ctx := context.Background()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := l.Acquire(ctx, convID)
			require.NoError(t, err)
			defer release()
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, 5)
}

func TestDisjointConversationsDoNotBlockEachOther(t *testing.T) {
	l := inmemory.New()
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
