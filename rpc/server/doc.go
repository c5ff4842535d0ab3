// Package server implements the reference store server for the cache
// protocol. It answers Get, Set, Delete, Clear and Stats requests from
// an in-memory backend with lazy TTL expiry.
//
// The server is composed of three exchangeable parts: a transport that
// moves raw bytes, a serializer shared with the client, and an adapter
// that maps decoded Messages onto the ServerStore.
package server
