// Package hashcache implements the ephemeral, per-run content-hash dedup
// set consulted by every processor before it writes output.
package hashcache

import "sync"

// Cache tracks payload hashes already seen during the current run. It is
// always empty at construction; callers create a fresh one per run.
// Callers compute the hash themselves (md5 or sha256, per kind) and pass
// the resulting hex string in; the cache only tracks membership.
type Cache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{seen: make(map[string]struct{})}
}

// Insert records hash as seen. Returns true if hash was already present
// (a duplicate), false if this is the first time it has been seen.
func (c *Cache) Insert(hash string) (duplicate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[hash]; ok {
		return true
	}
	c.seen[hash] = struct{}{}
	return false
}

// Contains reports whether hash has already been recorded, without
// inserting it.
func (c *Cache) Contains(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.seen[hash]
	return ok
}

// Len returns the number of distinct hashes recorded so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Reset empties the cache, for reuse across runs.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]struct{})
}
