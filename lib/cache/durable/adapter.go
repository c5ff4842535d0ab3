package durable

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/bitmark-inc/logger"
)

// namespace prefixes every raw key so the tier can share a backend with
// other data and clear only its own records.
const namespace = "tiercache:"

// record is the JSON envelope persisted per entry. Carrying the creation
// time and TTL lets expiry survive process restarts.
type record struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	TTLMs     int64     `json:"ttl_ms"`
}

// Store adapts a RawStorage backend to the cache.LocalTier contract.
type Store struct {
	storage RawStorage
	log     *logger.L
	clock   func() time.Time
}

// New creates a durable tier over the given backend.
func New(storage RawStorage) *Store {
	return &Store{
		storage: storage,
		log:     logger.New("cache-durable"),
		clock:   time.Now,
	}
}

// sanitizeKey escapes characters that are illegal in the underlying
// store's key space: path separators, whitespace, '#', '[' and ']'.
// Percent-escaping keeps distinct logical keys distinct; '%' itself is
// escaped so an escaped key can never collide with a literal one.
func sanitizeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '/', '\\', '#', '[', ']', '%', ' ', '\t', '\n', '\r':
			fmt.Fprintf(&sb, "%%%02X", r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func rawKey(key string) string {
	return namespace + sanitizeKey(key)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.LocalTier)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) ([]byte, bool) {
	entry, ok := s.Entry(key)
	if !ok {
		return nil, false
	}
	if entry.ExpiredAt(s.clock()) {
		_ = s.storage.RemoveItem(rawKey(key))
		return nil, false
	}
	return entry.Value, true
}

func (s *Store) Entry(key string) (cache.Entry, bool) {
	raw := rawKey(key)

	text, ok, err := s.storage.GetItem(raw)
	if err != nil {
		s.log.Warnf("read %q failed: %s", key, err)
		return cache.Entry{}, false
	}
	if !ok {
		return cache.Entry{}, false
	}

	var rec record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		// corrupted stored text is a miss, never an error to the caller
		s.log.Errorf("corrupted record for %q: %s", key, err)
		_ = s.storage.RemoveItem(raw)
		return cache.Entry{}, false
	}

	return cache.Entry{
		Key:       key,
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
		TTL:       time.Duration(rec.TTLMs) * time.Millisecond,
		Origin:    cache.TierLocal,
	}, true
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	text, err := json.Marshal(record{
		Value:     value,
		CreatedAt: s.clock(),
		TTLMs:     ttl.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", cache.ErrSerialization, err)
	}

	if err := s.storage.SetItem(rawKey(key), string(text)); err != nil {
		if errors.Is(err, cache.ErrQuotaExceeded) {
			s.log.Warnf("quota exceeded writing %q, tier skipped", key)
			return cache.ErrQuotaExceeded
		}
		return err
	}
	return nil
}

func (s *Store) Delete(key string) error {
	return s.storage.RemoveItem(rawKey(key))
}

// Clear removes only this tier's namespaced records, leaving unrelated
// data in a shared backend untouched.
func (s *Store) Clear() error {
	keys, err := s.storage.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if strings.HasPrefix(k, namespace) {
			if err := s.storage.RemoveItem(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.storage.Close()
}
