package durable

import (
	"fmt"
	"sync"

	"github.com/AnalineS/tiercache/lib/cache"
)

// memStorage is an in-memory RawStorage with quota accounting. It backs
// tests and deployments without a writable disk.
type memStorage struct {
	mu         sync.RWMutex
	items      map[string]string
	usedBytes  int64
	quotaBytes int64 // zero means unlimited
}

// NewMemStorage creates an in-memory RawStorage. quotaBytes bounds the
// total size of stored keys and values; zero means unlimited.
func NewMemStorage(quotaBytes int64) RawStorage {
	return &memStorage{
		items:      make(map[string]string),
		quotaBytes: quotaBytes,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see durable.RawStorage)
// --------------------------------------------------------------------------

func (s *memStorage) GetItem(rawKey string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text, ok := s.items[rawKey]
	return text, ok, nil
}

func (s *memStorage) SetItem(rawKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := int64(len(rawKey) + len(text))
	if old, ok := s.items[rawKey]; ok {
		delta -= int64(len(rawKey) + len(old))
	}

	if s.quotaBytes > 0 && s.usedBytes+delta > s.quotaBytes {
		return fmt.Errorf("%w: %d of %d bytes used", cache.ErrQuotaExceeded, s.usedBytes, s.quotaBytes)
	}

	s.items[rawKey] = text
	s.usedBytes += delta
	return nil
}

func (s *memStorage) RemoveItem(rawKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[rawKey]; ok {
		s.usedBytes -= int64(len(rawKey) + len(old))
		delete(s.items, rawKey)
	}
	return nil
}

func (s *memStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]string)
	s.usedBytes = 0
	return nil
}

func (s *memStorage) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memStorage) Close() error {
	return nil
}
