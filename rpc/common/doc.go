// Package common provides the data structures shared between the RPC
// client and server: the wire Message with its factory functions, the
// message type constants, and the client/server configuration structs.
//
// The Message is serialization-agnostic; the serializer package decides
// how it travels over the wire.
package common
