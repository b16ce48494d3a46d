package fabric

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// KindWorkspace scopes workspace entries in the resolve cache.
const KindWorkspace ItemKind = "Workspace"

type cacheKey struct {
	kind  ItemKind
	scope string
	input string
}

func (k cacheKey) String() string {
	return string(k.kind) + "/" + k.scope + "/" + k.input
}

type cacheEntry struct {
	id   string
	name string
}

// ResolveCache memoizes name and id resolutions. Keys are the exact input
// string, so "Sales" and "sales" are cached separately. Only successful
// resolutions are stored. It is safe for concurrent use.
type ResolveCache struct {
	lru *expirable.LRU[cacheKey, cacheEntry]
}

// NewResolveCache creates a cache holding at most size entries. A zero ttl
// keeps entries until they are evicted by size or cleared.
func NewResolveCache(size int, ttl time.Duration) *ResolveCache {
	if size <= 0 {
		size = DefaultResolveCacheSize
	}
	return &ResolveCache{lru: expirable.NewLRU[cacheKey, cacheEntry](size, nil, ttl)}
}

func (c *ResolveCache) get(key cacheKey) (cacheEntry, bool) {
	return c.lru.Get(key)
}

func (c *ResolveCache) add(key cacheKey, entry cacheEntry) {
	c.lru.Add(key, entry)
}

// Remove drops one entry. scope is the workspace id for items and empty
// for workspaces.
func (c *ResolveCache) Remove(kind ItemKind, scope, input string) {
	c.lru.Remove(cacheKey{kind: kind, scope: scope, input: input})
}

// Clear drops every entry.
func (c *ResolveCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *ResolveCache) Len() int {
	return c.lru.Len()
}
