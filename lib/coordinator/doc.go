// Package coordinator ties the storage tiers together behind a single
// read/write surface. Reads fall through volatile -> durable -> remote
// with backfill on the way up; writes land in both local tiers
// synchronously and propagate to the remote tier asynchronously through
// the sync queue. All remote traffic passes through a per-destination
// circuit breaker and the configured retry policy, and identical
// concurrent remote reads are collapsed into one network call.
//
// The coordinator never lets remote unavailability fail a local
// operation: reads degrade to local tiers (or a miss), writes report
// success once the local tiers hold the value.
package coordinator
