package server

import (
	"time"

	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// storedEntry is one record in the in-memory backend.
type storedEntry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e storedEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// NewMemServerStore creates the in-memory ServerStore backend.
func NewMemServerStore() ServerStore {
	return &memServerStore{
		entries: xsync.NewMapOf[string, storedEntry](),
	}
}

type memServerStore struct {
	entries *xsync.MapOf[string, storedEntry]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.ServerStore)
// --------------------------------------------------------------------------

func (s *memServerStore) Get(key string) ([]byte, bool) {
	entry, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		// expired entries are collected lazily on access
		s.entries.Delete(key)
		return nil, false
	}
	return entry.value, true
}

func (s *memServerStore) Set(key string, value []byte, ttl time.Duration) {
	s.entries.Store(key, storedEntry{
		value:     value,
		createdAt: time.Now(),
		ttl:       ttl,
	})
}

func (s *memServerStore) Delete(key string) {
	s.entries.Delete(key)
}

func (s *memServerStore) Clear() {
	s.entries.Clear()
}

func (s *memServerStore) Stats() common.StatsPayload {
	var stats common.StatsPayload
	now := time.Now()
	s.entries.Range(func(_ string, entry storedEntry) bool {
		if entry.expired(now) {
			stats.ExpiredCount++
		} else {
			stats.EntryCount++
			stats.SizeBytes += int64(len(entry.value))
		}
		return true
	})
	return stats
}
