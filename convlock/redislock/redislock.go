// Package redislock implements convlock.Locker with Redis `SET key value NX
// PX ttl`: the classic single-instance distributed lock, sufficient here
// because the lock only needs to serialize cooperative writers against one
// shared store, not survive a Redis failover mid-hold (that would call for
// Redlock across multiple independent Redis nodes, which is out of scope).
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/agentcore/convlock"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
)

// Locker acquires per-conversation locks in Redis.
type Locker struct {
	rdb        *redis.Client
	keyPrefix  string
	ttl        time.Duration
	retryDelay time.Duration
}

// Config configures a Locker.
type Config struct {
	Client     *redis.Client
	KeyPrefix  string        // defaults to "agentcore:convlock:"
	TTL        time.Duration // defaults to 30s; must exceed the longest expected write
	RetryDelay time.Duration // defaults to 50ms
}

// New builds a Locker from cfg.
func New(cfg Config) *Locker {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "agentcore:convlock:"
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	retry := cfg.RetryDelay
	if retry == 0 {
		retry = 50 * time.Millisecond
	}
	return &Locker{rdb: cfg.Client, keyPrefix: prefix, ttl: ttl, retryDelay: retry}
}

var _ convlock.Locker = (*Locker)(nil)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Acquire polls SET NX PX until it wins the lock or ctx is canceled. The
// lock value is a random owner token so Release only ever deletes a key
// this call actually holds, never a lock some other, later holder acquired
// after this one's TTL expired.
func (l *Locker) Acquire(ctx context.Context, conversationID ids.ConversationID) (func(), error) {
	key := l.keyPrefix + string(conversationID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, core.NewError("convlock/redislock.Acquire", core.ErrIO, "setnx", err)
		}
		if ok {
			return func() {
				releaseScript.Run(context.Background(), l.rdb, []string{key}, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
