package cache

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// LocalTier is the shared contract of the two local storage tiers
// (volatile and durable). All write operations return only an error (nil
// on success); reads report presence with a boolean.
//
// Implementations must be safe for concurrent use.
type LocalTier interface {
	// Get returns the value for key, or false if the key is absent or
	// its entry is expired.
	Get(key string) (value []byte, loaded bool)
	// Entry returns the stored entry for key even if it is expired.
	// Callers use this for the stale-while-revalidate path.
	Entry(key string) (entry Entry, loaded bool)
	// Set inserts or updates a key-value pair with the given TTL.
	// A zero TTL means the entry never expires.
	Set(key string, value []byte, ttl time.Duration) error
	// Delete removes a key-value pair.
	Delete(key string) error
	// Clear removes all entries owned by this tier.
	Clear() error
}

// RemoteStats is the remote store's self-reported state.
type RemoteStats struct {
	EntryCount   int   `json:"entry_count"`
	ExpiredCount int   `json:"expired_count"`
	SizeBytes    int64 `json:"size_bytes"`
	Available    bool  `json:"available"`
}

// RemoteStore is the consumed surface of the network-backed persistent
// store. Every call may fail; this layer never assumes the store is
// available and degrades gracefully when it is not.
type RemoteStore interface {
	Get(ctx context.Context, key string) (value []byte, loaded bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, meta map[string]string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// IsReady reports whether the store can currently be used. Callers
	// short-circuit to local tiers when it returns false.
	IsReady() bool
	Stats(ctx context.Context) (RemoteStats, error)
}
