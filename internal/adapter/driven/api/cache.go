package api

import (
	"sync"

	"github.com/gregjones/httpcache"
)

// Compile-time interface satisfaction check.
var _ httpcache.Cache = (*sessionCache)(nil)

// sessionCache is the response cache for one session. httpcache keys entries
// by URL only, so the whole cache is dropped whenever the session changes;
// otherwise a fresh entry stored for one user could be served to the next
// without reaching the server.
type sessionCache struct {
	mu    sync.RWMutex
	inner *httpcache.MemoryCache
}

func newSessionCache() *sessionCache {
	return &sessionCache{inner: httpcache.NewMemoryCache()}
}

func (c *sessionCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Get(key)
}

func (c *sessionCache) Set(key string, resp []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.inner.Set(key, resp)
}

func (c *sessionCache) Delete(key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.inner.Delete(key)
}

// Purge drops every cached response.
func (c *sessionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = httpcache.NewMemoryCache()
}
