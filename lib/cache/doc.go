// Package cache defines the shared data model of the tiered cache: the
// Entry type with its TTL semantics, the error taxonomy used across all
// tiers, and the interfaces the request coordinator is wired against.
//
// The cache is organized as three tiers with different persistence and
// latency characteristics:
//
//   - Volatile: in-process memory, fastest, lost on restart
//     (implemented in lib/cache/volatile)
//   - Durable: device-persistent key/value storage, survives restarts,
//     capacity-limited (implemented in lib/cache/durable)
//   - Remote: a network-backed persistent store owned externally
//     (client adapter in rpc/client)
//
// This package contains no behavior beyond entry expiry and error
// classification; the orchestration lives in lib/coordinator.
package cache
