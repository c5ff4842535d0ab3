package server

import (
	"time"

	"github.com/AnalineS/tiercache/rpc/common"
)

// ServerStore is the storage backend an adapter answers requests from.
//
// Implementations must be safe for concurrent use.
type ServerStore interface {
	// Get returns the value for key, or false if absent or expired
	Get(key string) (value []byte, loaded bool)
	// Set inserts or updates a key-value pair; zero ttl means no expiry
	Set(key string, value []byte, ttl time.Duration)
	// Delete removes a key-value pair
	Delete(key string)
	// Clear removes all entries
	Clear()
	// Stats reports the store's current state
	Stats() common.StatsPayload
}

// IRPCServerAdapter translates wire Messages into store operations.
type IRPCServerAdapter interface {
	// Handle processes one request message against the store and
	// returns the response message. It never returns nil.
	Handle(req *common.Message, store ServerStore) *common.Message
}
