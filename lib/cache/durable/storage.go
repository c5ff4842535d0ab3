package durable

// RawStorage is the raw interface of the underlying device-persistent
// store. Keys and values are plain text; the backend knows nothing about
// cache entries or TTLs.
//
// SetItem returns cache.ErrQuotaExceeded (possibly wrapped) when the
// backend is out of capacity. Implementations must be safe for concurrent
// use.
type RawStorage interface {
	// GetItem returns the stored text for rawKey, or false if absent.
	GetItem(rawKey string) (text string, loaded bool, err error)
	// SetItem stores text under rawKey, overwriting any previous value.
	SetItem(rawKey string, text string) error
	// RemoveItem deletes rawKey. Removing an absent key is not an error.
	RemoveItem(rawKey string) error
	// Clear removes all stored items.
	Clear() error
	// Keys enumerates all stored keys, for diagnostics and namespaced
	// clearing.
	Keys() ([]string, error)
	// Close releases backend resources.
	Close() error
}
