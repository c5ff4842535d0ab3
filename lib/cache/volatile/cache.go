package volatile

import (
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is the in-process volatile tier. Size is bounded only by process
// memory; expiry is checked lazily on Get rather than by a background
// sweep.
type Cache struct {
	entries *xsync.MapOf[string, cache.Entry]
	clock   func() time.Time
}

// New creates an empty volatile cache.
func New() *Cache {
	return &Cache{
		entries: xsync.NewMapOf[string, cache.Entry](),
		clock:   time.Now,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.LocalTier)
// --------------------------------------------------------------------------

func (c *Cache) Get(key string) ([]byte, bool) {
	entry, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	if entry.ExpiredAt(c.clock()) {
		// lazy expiry: drop the entry on observation
		c.entries.Delete(key)
		return nil, false
	}
	return entry.CopyValue(), true
}

func (c *Cache) Entry(key string) (cache.Entry, bool) {
	entry, ok := c.entries.Load(key)
	if !ok {
		return cache.Entry{}, false
	}
	entry.Value = entry.CopyValue()
	return entry, true
}

func (c *Cache) Set(key string, value []byte, ttl time.Duration) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.entries.Store(key, cache.Entry{
		Key:        key,
		Value:      valueCopy,
		CreatedAt:  c.clock(),
		TTL:        ttl,
		Origin:     cache.TierMemory,
		SyncStatus: cache.SyncPending,
	})
	return nil
}

func (c *Cache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

func (c *Cache) Clear() error {
	c.entries.Clear()
	return nil
}

// Len returns the number of stored entries, counting entries that are
// expired but not yet lazily dropped.
func (c *Cache) Len() int {
	return c.entries.Size()
}
