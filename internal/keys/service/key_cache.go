package service

import (
	"sort"
	"sync"
	"time"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// KeyCache is a bounded, TTL-expiring cache of key records.
//
// Expiry is checked lazily on Get. When full, the oldest inserted entry is
// evicted; re-inserting an existing name refreshes its position. Evicted and
// cleared records have their key bytes zeroed.
type KeyCache struct {
	mu      sync.Mutex
	entries map[keysDomain.KeyName]*keysDomain.CacheEntry
	order   []keysDomain.KeyName
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewKeyCache creates a cache with the given TTL and maximum size.
func NewKeyCache(ttl time.Duration, maxSize int) *KeyCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &KeyCache{
		entries: make(map[keysDomain.KeyName]*keysDomain.CacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the live record for name. The copy is taken under the
// lock so a concurrent eviction never zeroes bytes being read.
func (c *KeyCache) Get(name keysDomain.KeyName) (*keysDomain.KeyRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if entry.Expired(c.now()) {
		c.removeLocked(name)
		return nil, false
	}
	return entry.Record.Clone(), true
}

// Set stores a private copy of rec, evicting the oldest entries while the
// cache is full. The caller keeps ownership of rec.
func (c *KeyCache) Set(rec *keysDomain.KeyRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[rec.Name]; ok {
		c.removeLocked(rec.Name)
	}
	for len(c.order) >= c.maxSize {
		c.removeLocked(c.order[0])
	}

	c.entries[rec.Name] = &keysDomain.CacheEntry{
		Record:   rec.Clone(),
		CachedAt: c.now(),
		TTL:      c.ttl,
	}
	c.order = append(c.order, rec.Name)
}

// Clear drops every entry.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries {
		entry.Record.Zero()
	}
	c.entries = make(map[keysDomain.KeyName]*keysDomain.CacheEntry)
	c.order = nil
}

// Stats reports the size and cached names, sorted.
func (c *KeyCache) Stats() keysDomain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]keysDomain.KeyName, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return keysDomain.CacheStats{Size: len(names), KeyNames: names}
}

func (c *KeyCache) removeLocked(name keysDomain.KeyName) {
	if entry, ok := c.entries[name]; ok {
		entry.Record.Zero()
		delete(c.entries, name)
	}
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
