// Package rpc and its subpackages implement the network protocol
// between a cache node and the remote store it propagates to.
//
// The layering is strictly separated:
//
//   - common: wire Message and configuration structs
//   - serializer: pluggable Message encodings (JSON, GOB)
//   - transport: byte-level request/response transports (HTTP)
//   - client: cache.RemoteStore implementation on top of a transport
//   - server: reference store server answering the cache protocol
//
// Client and server only agree on the Message structure and the chosen
// serializer; transports carry opaque byte slices.
package rpc
