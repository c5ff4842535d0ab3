package cache

import (
	"time"
)

// --------------------------------------------------------------------------
// Tier and SyncStatus enums
// --------------------------------------------------------------------------

// Tier identifies the storage layer an entry was served from.
type Tier uint8

const (
	TierMemory Tier = iota // in-process volatile tier
	TierLocal              // device-persistent durable tier
	TierRemote             // network-backed remote store
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierLocal:
		return "local"
	case TierRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// SyncStatus tracks whether an entry's value has been propagated to the
// remote store.
type SyncStatus uint8

const (
	SyncSynced  SyncStatus = iota // remote store holds this value
	SyncPending                   // queued for propagation
	SyncFailed                    // propagation attempted and failed
)

func (s SyncStatus) String() string {
	switch s {
	case SyncSynced:
		return "synced"
	case SyncPending:
		return "pending"
	case SyncFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// Entry is a cached key-value pair with its TTL metadata. Entries are
// value types; the Value slice is copied by the tiers on the way in and
// out, so holding an Entry never aliases tier-internal storage.
type Entry struct {
	Key        string
	Value      []byte
	CreatedAt  time.Time
	TTL        time.Duration // zero means no expiry
	Origin     Tier
	SyncStatus SyncStatus
}

// ExpiredAt reports whether the entry is logically expired at the given
// instant. A zero TTL never expires.
func (e Entry) ExpiredAt(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// Expired reports whether the entry is logically expired now.
func (e Entry) Expired() bool {
	return e.ExpiredAt(time.Now())
}

// CopyValue returns an independent copy of the entry's value.
func (e Entry) CopyValue() []byte {
	if e.Value == nil {
		return nil
	}
	out := make([]byte, len(e.Value))
	copy(out, e.Value)
	return out
}
