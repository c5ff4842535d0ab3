// Package client implements cache.RemoteStore on top of the RPC
// layers: requests are built as wire Messages, encoded by the
// configured serializer and carried by the configured transport.
//
// The client performs no retries and holds no circuit state of its
// own; it reports failures with their retry classification and leaves
// the policy to the caller.
package client
