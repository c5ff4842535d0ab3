// Package durable implements the device-persistent cache tier. It adapts
// a raw text-based key/value storage (RawStorage) into the cache.LocalTier
// contract by serializing entries to JSON envelopes under namespaced,
// sanitized keys.
//
// The tier is deliberately forgiving:
//
//   - A write that exceeds the storage quota returns cache.ErrQuotaExceeded
//     instead of a raw backend error; the coordinator skips this tier and
//     the operation as a whole still succeeds because the volatile tier
//     already holds the value.
//   - A read that finds malformed stored text logs the corruption, removes
//     the record and reports a miss. It never fails the caller.
//
// Two RawStorage backends are provided: NewLevelDBStorage persists to a
// goleveldb database on disk, NewMemStorage keeps everything in memory and
// exists for tests and for running without a writable disk. Both enforce a
// configurable byte quota.
package durable
