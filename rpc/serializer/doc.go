// Package serializer provides pluggable encodings for the wire
// Message. Client and server must be configured with the same
// implementation.
//
// Two encodings are available: JSON (human readable, interoperable)
// and GOB (compact, Go to Go only). Both round-trip every Message
// field including the optional stats payload.
package serializer
