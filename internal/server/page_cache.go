package server

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"
)

// article is a cleaned page body ready to be wrapped in the reader shell.
type article struct {
	ID     string
	Title  string
	Source string
	Body   string
}

type cacheEntry struct {
	article article
	created time.Time
}

// pageCache keeps rendered articles for a limited time. Entries are
// addressed by id; fetched pages are also indexed by their source URL.
type pageCache struct {
	mu    sync.RWMutex
	now   func() time.Time
	ttl   time.Duration
	data  map[string]cacheEntry
	byURL map[string]string
}

func newPageCache(now func() time.Time, ttl time.Duration) *pageCache {
	if now == nil {
		now = time.Now
	}
	return &pageCache{
		now:   now,
		ttl:   ttl,
		data:  make(map[string]cacheEntry),
		byURL: make(map[string]string),
	}
}

func articleID(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Store saves a copy of a and returns its id.
func (c *pageCache) Store(a article) string {
	if a.ID == "" {
		a.ID = articleID(a.Source, a.Title, a.Body)
	}
	c.mu.Lock()
	c.data[a.ID] = cacheEntry{article: a, created: c.now()}
	if a.Source != "" {
		c.byURL[a.Source] = a.ID
	}
	c.mu.Unlock()
	return a.ID
}

func (c *pageCache) expired(e cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.created) > c.ttl
}

// Get returns a live entry. Expired entries are dropped on access.
func (c *pageCache) Get(id string) (article, bool) {
	c.mu.RLock()
	entry, ok := c.data[id]
	c.mu.RUnlock()
	if !ok {
		return article{}, false
	}
	if c.expired(entry) {
		c.mu.Lock()
		delete(c.data, id)
		if entry.article.Source != "" && c.byURL[entry.article.Source] == id {
			delete(c.byURL, entry.article.Source)
		}
		c.mu.Unlock()
		return article{}, false
	}
	return entry.article, true
}

// Lookup finds the cached article fetched from source.
func (c *pageCache) Lookup(source string) (article, bool) {
	c.mu.RLock()
	id, ok := c.byURL[source]
	c.mu.RUnlock()
	if !ok {
		return article{}, false
	}
	return c.Get(id)
}

// Len reports the number of stored entries, expired or not.
func (c *pageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
