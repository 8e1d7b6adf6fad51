package textstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/agentcore/ids"
)

// CachedStore wraps a Store with a Redis (or Dragonfly, same wire protocol)
// existence cache keyed by content hash, so repeated Store calls for
// frequently-seen text (system prompts, boilerplate instructions) skip the
// database round-trip entirely once warm.
type CachedStore struct {
	*Store
	rdb *redis.Client
	ttl time.Duration
}

// NewCached wraps store with a cache client. ttl of zero means entries never
// expire.
func NewCached(store *Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, rdb: rdb, ttl: ttl}
}

func (c *CachedStore) cacheKey(hash string) string {
	return "textstore:hash:" + hash
}

// FindByHash checks the cache before falling back to the underlying Store.
func (c *CachedStore) FindByHash(ctx context.Context, hash string) (ids.ContentBlockID, bool, error) {
	if id, err := c.rdb.Get(ctx, c.cacheKey(hash)).Result(); err == nil {
		return ids.ContentBlockID(id), true, nil
	}
	id, found, err := c.Store.FindByHash(ctx, hash)
	if err != nil || !found {
		return id, found, err
	}
	c.rdb.Set(ctx, c.cacheKey(hash), string(id), c.ttl)
	return id, found, nil
}
