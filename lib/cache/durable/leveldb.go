package durable

import (
	"fmt"
	"sync"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/syndtr/goleveldb/leveldb"
)

// levelDBStorage persists items in a goleveldb database. Quota enforcement
// uses an approximate byte count of stored keys and values, recomputed
// from the database on open.
type levelDBStorage struct {
	db         *leveldb.DB
	mu         sync.Mutex // protects usedBytes across read-modify-write
	usedBytes  int64
	quotaBytes int64
}

// NewLevelDBStorage opens (or creates) a goleveldb database at path.
// quotaBytes bounds the total size of stored keys and values; zero means
// unlimited.
func NewLevelDBStorage(path string, quotaBytes int64) (RawStorage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}

	s := &levelDBStorage{
		db:         db,
		quotaBytes: quotaBytes,
	}

	// rebuild the usage counter from the existing contents
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		s.usedBytes += int64(len(iter.Key()) + len(iter.Value()))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see durable.RawStorage)
// --------------------------------------------------------------------------

func (s *levelDBStorage) GetItem(rawKey string) (string, bool, error) {
	value, err := s.db.Get([]byte(rawKey), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (s *levelDBStorage) SetItem(rawKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := int64(len(rawKey) + len(text))
	if old, err := s.db.Get([]byte(rawKey), nil); err == nil {
		delta -= int64(len(rawKey) + len(old))
	}

	if s.quotaBytes > 0 && s.usedBytes+delta > s.quotaBytes {
		return fmt.Errorf("%w: %d of %d bytes used", cache.ErrQuotaExceeded, s.usedBytes, s.quotaBytes)
	}

	if err := s.db.Put([]byte(rawKey), []byte(text), nil); err != nil {
		return err
	}
	s.usedBytes += delta
	return nil
}

func (s *levelDBStorage) RemoveItem(rawKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, err := s.db.Get([]byte(rawKey), nil); err == nil {
		s.usedBytes -= int64(len(rawKey) + len(old))
	}
	return s.db.Delete([]byte(rawKey), nil)
}

func (s *levelDBStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		batch.Delete(key)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	if err := s.db.Write(batch, nil); err != nil {
		return err
	}
	s.usedBytes = 0
	return nil
}

func (s *levelDBStorage) Keys() ([]string, error) {
	var keys []string
	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	return keys, iter.Error()
}

func (s *levelDBStorage) Close() error {
	return s.db.Close()
}
