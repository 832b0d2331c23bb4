package external

import (
	"sync"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
)

type cacheEntry struct {
	quote     domain.Quote
	expiresAt time.Time
}

// quoteCache keeps recently fetched quotes in memory for ttl.
type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *quoteCache) get(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Now().After(entry.expiresAt) {
		return domain.Quote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) set(symbol string, q domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cacheEntry{
		quote:     q,
		expiresAt: time.Now().Add(c.ttl),
	}
}
