package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string            `json:"key,omitempty"`    // Used for: Get, Set, Delete
	Keys  []string          `json:"keys,omitempty"`   // Used for: GetMany requests
	Value []byte            `json:"value,omitempty"`  // Used for: Set (request), Get (response)
	TTLMs uint64            `json:"ttl_ms,omitempty"` // Used for: Set requests, 0 means no expiry
	Meta  map[string]string `json:"meta,omitempty"`   // Used for: Set requests (propagation metadata)

	// Response only fields
	Ok    bool          `json:"ok,omitempty"`    // Used for: Get responses (presence)
	Err   string        `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
	Stats *StatsPayload `json:"stats,omitempty"` // Used for: Stats responses
	Batch []BatchValue  `json:"batch,omitempty"` // Used for: GetMany responses, one element per requested key
}

// BatchValue is one per-key result in a GetMany response.
type BatchValue struct {
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
	Ok    bool   `json:"ok,omitempty"`
}

// StatsPayload carries the store's self-reported state in a Stats
// response.
type StatsPayload struct {
	EntryCount   int   `json:"entry_count"`
	ExpiredCount int   `json:"expired_count"`
	SizeBytes    int64 `json:"size_bytes"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTCacheGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheGet,
		Value:   value,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetManyRequest creates a new GetMany request
func NewGetManyRequest(keys []string) *Message {
	return &Message{
		MsgType: MsgTCacheGetMany,
		Keys:    keys,
	}
}

// NewGetManyResponse creates a new GetMany response
func NewGetManyResponse(batch []BatchValue, err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheGetMany,
		Batch:   batch,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte, ttl time.Duration, meta map[string]string) *Message {
	return &Message{
		MsgType: MsgTCacheSet,
		Key:     key,
		Value:   value,
		TTLMs:   uint64(ttl / time.Millisecond),
		Meta:    meta,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheSet,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTCacheDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheDelete,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewClearRequest creates a new Clear request
func NewClearRequest() *Message {
	return &Message{
		MsgType: MsgTCacheClear,
	}
}

// NewClearResponse creates a new Clear response
func NewClearResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheClear,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewStatsRequest creates a new Stats request
func NewStatsRequest() *Message {
	return &Message{
		MsgType: MsgTCacheStats,
	}
}

// NewStatsResponse creates a new Stats response
func NewStatsResponse(stats StatsPayload, err error) *Message {
	msg := &Message{
		MsgType: MsgTCacheStats,
		Stats:   &stats,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTCacheGet:
		return "get"
	case MsgTCacheGetMany:
		return "get_many"
	case MsgTCacheSet:
		return "set"
	case MsgTCacheDelete:
		return "delete"
	case MsgTCacheClear:
		return "clear"
	case MsgTCacheStats:
		return "stats"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "success":
		*t = MsgTSuccess
	case "error":
		*t = MsgTError
	case "get":
		*t = MsgTCacheGet
	case "get_many":
		*t = MsgTCacheGetMany
	case "set":
		*t = MsgTCacheSet
	case "delete":
		*t = MsgTCacheDelete
	case "clear":
		*t = MsgTCacheClear
	case "stats":
		*t = MsgTCacheStats
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Cache store operations

	MsgTCacheGet    // Get a value by key
	MsgTCacheSet    // Set a key-value pair with optional TTL
	MsgTCacheDelete // Delete a key-value pair
	MsgTCacheClear  // Remove all entries
	MsgTCacheStats  // Query store statistics

	MsgTCacheGetMany // Get values for several keys in one round trip
)
