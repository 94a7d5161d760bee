// Package cache provides a small TTL'd LRU for fetched page bodies, so a
// product page referenced from several listing pages is downloaded once.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// PageCache stores raw HTML bodies keyed by URL. Bodies rather than parsed
// documents are cached so every consumer gets its own document tree.
type PageCache struct {
	lru *expirable.LRU[string, []byte]
}

// New creates a cache holding up to size entries, each expiring after ttl.
func New(size int, ttl time.Duration) *PageCache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PageCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Get returns the cached body for url, if present and unexpired.
func (c *PageCache) Get(url string) ([]byte, bool) {
	body, ok := c.lru.Get(url)
	if ok {
		log.Debug().Str("url", url).Msg("page cache hit")
	}
	return body, ok
}

// Set stores the body for url, evicting the least recently used entry
// when full.
func (c *PageCache) Set(url string, body []byte) {
	c.lru.Add(url, body)
}

// Len reports the number of live entries.
func (c *PageCache) Len() int {
	return c.lru.Len()
}

// Purge drops all entries.
func (c *PageCache) Purge() {
	c.lru.Purge()
}
