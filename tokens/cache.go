package tokens

import "sync"

// CachedCounter memoizes another Counter per distinct text.
type CachedCounter struct {
	inner Counter

	mu    sync.RWMutex
	cache map[string]int
}

var _ Counter = (*CachedCounter)(nil)

// NewCached wraps inner with a memo table.
func NewCached(inner Counter) *CachedCounter {
	return &CachedCounter{
		inner: inner,
		cache: make(map[string]int),
	}
}

// Count returns the memoized count for text, computing it on first use.
func (c *CachedCounter) Count(text string) int {
	c.mu.RLock()
	n, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return n
	}

	n = c.inner.Count(text)

	c.mu.Lock()
	c.cache[text] = n
	c.mu.Unlock()
	return n
}

// Len reports how many distinct texts are cached.
func (c *CachedCounter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
