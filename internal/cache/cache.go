package cache

import (
	"sync"
	"time"
)

// Options holds buffer cache tuning parameters
type Options struct {
	// MaxEntries is the capacity bound; inserting beyond it evicts
	// the least recently used entry
	MaxEntries int

	// MaxAge is how long an entry stays valid after insertion
	MaxAge time.Duration

	// PreloadTimeout bounds the byte provider passed to Preload
	PreloadTimeout time.Duration
}

// DefaultOptions returns the default cache configuration
func DefaultOptions() Options {
	return Options{
		MaxEntries:     5,
		MaxAge:         24 * time.Hour,
		PreloadTimeout: 10 * time.Second,
	}
}

// entry is a cached book buffer with its bookkeeping timestamps.
// lastAccessedAt changes only on Get hits.
type entry struct {
	key            string
	buffer         []byte
	createdAt      time.Time
	lastAccessedAt time.Time
}

// Cache is a bounded key->buffer map with time-based expiry and
// least-recently-used eviction. It keeps the decoded contents of
// recently opened books so repeat opens skip re-reading the stored
// file. Callers must not mutate returned buffers.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	opts    Options

	// now is replaceable in tests
	now func() time.Time
}

// New creates an empty cache. Zero or negative option fields fall
// back to the defaults.
func New(opts Options) *Cache {
	def := DefaultOptions()
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = def.MaxEntries
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = def.MaxAge
	}
	if opts.PreloadTimeout <= 0 {
		opts.PreloadTimeout = def.PreloadTimeout
	}

	return &Cache{
		entries: make(map[string]*entry),
		opts:    opts,
		now:     time.Now,
	}
}

// Contains reports whether an unexpired entry exists for key.
// An expired entry found here is removed immediately. Unlike Get,
// this does not touch the entry's last-access time.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(ent, c.now()) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Get returns the buffer for key if present and unexpired, marking
// the entry as recently used. An expired entry is removed and
// reported as a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if c.expired(ent, now) {
		delete(c.entries, key)
		return nil, false
	}

	ent.lastAccessedAt = now
	return ent.buffer, true
}

// Put inserts or replaces the entry for key. Expired entries are
// swept first; if the cache is still at capacity and key is new,
// the least recently used entry is evicted to make room.
func (c *Cache) Put(key string, buffer []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxEntries {
		c.evictLocked()
	}

	c.entries[key] = &entry{
		key:            key,
		buffer:         buffer,
		createdAt:      now,
		lastAccessedAt: now,
	}
}

// Remove deletes the entry for key if present
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// SweepExpired removes every entry older than MaxAge and returns the
// number removed. The owning process calls this periodically; Put
// also runs it before inserting.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats is a point-in-time snapshot of cache contents. Oldest and
// Newest are zero when the cache is empty.
type Stats struct {
	Count      int       `json:"count"`
	TotalBytes int64     `json:"total_bytes"`
	Oldest     time.Time `json:"oldest,omitzero"`
	Newest     time.Time `json:"newest,omitzero"`
}

// Stats returns a snapshot of the current cache contents
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var st Stats
	for _, ent := range c.entries {
		st.Count++
		st.TotalBytes += int64(len(ent.buffer))
		if st.Oldest.IsZero() || ent.createdAt.Before(st.Oldest) {
			st.Oldest = ent.createdAt
		}
		if st.Newest.IsZero() || ent.createdAt.After(st.Newest) {
			st.Newest = ent.createdAt
		}
	}
	return st
}

func (c *Cache) expired(ent *entry, now time.Time) bool {
	return now.Sub(ent.createdAt) > c.opts.MaxAge
}

func (c *Cache) sweepLocked(now time.Time) int {
	removed := 0
	for key, ent := range c.entries {
		if c.expired(ent, now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictLocked removes the entry with the smallest lastAccessedAt.
// Ties go to the smallest key so the choice does not depend on map
// iteration order.
func (c *Cache) evictLocked() {
	var victim *entry
	for _, ent := range c.entries {
		if victim == nil ||
			ent.lastAccessedAt.Before(victim.lastAccessedAt) ||
			(ent.lastAccessedAt.Equal(victim.lastAccessedAt) && ent.key < victim.key) {
			victim = ent
		}
	}
	if victim != nil {
		delete(c.entries, victim.key)
	}
}
