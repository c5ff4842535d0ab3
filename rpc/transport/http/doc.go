// Package http implements the RPC transport contracts over HTTP.
// Requests are POSTed to /rpc as opaque bodies; the client spreads
// load across its endpoints round-robin and classifies failures so
// callers can decide about retries (network errors and 5xx are
// transient, 4xx permanent).
package http
