package repo

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"sync"
	"time"

	"github.com/patchpilot/codepatch/internal/types"
)

const defaultCacheSize = 16

// Cache memoizes characterized repository contexts keyed by a stable hash
// of the source URL. It is bounded: when full, the oldest entry is evicted
// and its working copy released. Concurrent builds of the same URL are
// collapsed into one via per-key locks.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	locks   map[string]*sync.Mutex
}

type cacheEntry struct {
	ctx     *types.RepositoryContext
	created time.Time
}

func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	return &Cache{
		maxSize: maxSize,
		entries: map[string]*cacheEntry{},
		locks:   map[string]*sync.Mutex{},
	}
}

func cacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// GetOrBuild returns the cached context for url, building and storing it on
// a miss. Two concurrent calls for the same url result in exactly one build;
// builds for distinct urls proceed in parallel.
func (c *Cache) GetOrBuild(url string, build func() (*types.RepositoryContext, error)) (*types.RepositoryContext, error) {
	key := cacheKey(url)

	c.mu.Lock()
	keyLock, ok := c.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		c.locks[key] = keyLock
	}
	c.mu.Unlock()

	keyLock.Lock()
	defer keyLock.Unlock()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return entry.ctx, nil
	}
	c.mu.Unlock()

	ctx, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.evictIfFull()
	c.entries[key] = &cacheEntry{ctx: ctx, created: time.Now()}
	c.mu.Unlock()

	return ctx, nil
}

// Get returns the cached context for url without building.
func (c *Cache) Get(url string) (*types.RepositoryContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(url)]
	if !ok {
		return nil, false
	}
	return entry.ctx, true
}

// Remove drops the entry for url and releases its working copy.
func (c *Cache) Remove(url string) {
	key := cacheKey(url)

	c.mu.Lock()
	entry, ok := c.entries[key]
	delete(c.entries, key)
	delete(c.locks, key)
	c.mu.Unlock()

	if ok {
		releaseWorkingCopy(entry.ctx)
	}
}

// Len reports the number of cached contexts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry and releases all working copies.
func (c *Cache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = map[string]*cacheEntry{}
	c.locks = map[string]*sync.Mutex{}
	c.mu.Unlock()

	for _, entry := range entries {
		releaseWorkingCopy(entry.ctx)
	}
}

// evictIfFull removes the oldest entry when the cache is at capacity.
// Caller holds c.mu.
func (c *Cache) evictIfFull() {
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.created.Before(oldest) {
			oldestKey = key
			oldest = entry.created
		}
	}

	if oldestKey != "" {
		entry := c.entries[oldestKey]
		delete(c.entries, oldestKey)
		delete(c.locks, oldestKey)
		releaseWorkingCopy(entry.ctx)
	}
}

func releaseWorkingCopy(ctx *types.RepositoryContext) {
	if ctx.TempDir != "" {
		_ = os.RemoveAll(ctx.TempDir)
	}
}
