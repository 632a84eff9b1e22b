package ratelimiter

import (
	"hash/fnv"
	"sync"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
	"github.com/dmitrymomot/edgegate/pkg/cache"
)

// lockShards is the width of the striped lock guarding per-client cache
// access: fixed so the lock set itself never grows, unlike the cache
// entries it protects.
const lockShards = 256

// defaultCacheCapacity bounds the number of distinct client ids a process
// keeps warm; beyond it the least-recently-used entry is evicted and
// re-seeded from the store on next sight.
const defaultCacheCapacity = 50_000

// cachedBucket is a sanitized bucket plus the last time it was touched,
// used to decide staleness.
type cachedBucket struct {
	Bucket     bucket.Bucket
	LastAccess int64
}

// memoryCache is the process-local state shared by the optimistic and
// hybrid limiters. Reads/writes for one client id are serialized by a
// fixed-width striped lock so unrelated clients never contend, while the
// entries themselves live in a bounded LRU so an unbounded stream of
// distinct client ids cannot grow memory without limit.
type memoryCache struct {
	entries *cache.LRUCache[string, *cachedBucket]
	locks   [lockShards]sync.Mutex
}

func newMemoryCache(capacity int) *memoryCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &memoryCache{entries: cache.NewLRUCache[string, *cachedBucket](capacity)}
}

// lock serializes read-modify-write access to clientID's entry and
// returns the matching unlock func. Call sites hold it for the whole
// read-evaluate-write sequence so a prior in-flight decrement for the
// same client is always observed by the next one.
func (c *memoryCache) lock(clientID string) func() {
	shard := &c.locks[shardFor(clientID)]
	shard.Lock()
	return shard.Unlock
}

func (c *memoryCache) get(clientID string) (*cachedBucket, bool) {
	return c.entries.Get(clientID)
}

func (c *memoryCache) put(clientID string, entry *cachedBucket) {
	c.entries.Put(clientID, entry)
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}

// stale reports whether entry is missing or has not been touched within
// stalenessMillis of nowMillis.
func stale(entry *cachedBucket, nowMillis, stalenessMillis int64) bool {
	return entry == nil || nowMillis-entry.LastAccess > stalenessMillis
}
