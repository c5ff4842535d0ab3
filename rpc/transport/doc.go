// Package transport defines the byte-level transport contracts between
// the RPC client and server. A transport moves opaque request and
// response byte slices; serialization is layered on top by the caller.
//
// The http subpackage provides the HTTP implementation. Client
// transports never retry on their own: transient-failure handling is
// the caller's concern, so one Send is exactly one network attempt.
package transport
