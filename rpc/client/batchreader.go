package client

import (
	"context"

	"github.com/AnalineS/tiercache/lib/batch"
	"github.com/AnalineS/tiercache/lib/cache"
)

// BulkReader is the widened client surface of a remote store that can
// answer several keys in one round trip. The store returned by
// NewRemoteStore implements it.
type BulkReader interface {
	cache.RemoteStore
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

// readResult is one caller's share of a combined GetMany call.
type readResult struct {
	value []byte
	ok    bool
}

// BatchingReader coalesces concurrent single-key reads into combined
// GetMany round trips. Callers use Get exactly like the plain store;
// requests arriving within the batch window share one network call.
type BatchingReader struct {
	batcher *batch.Batcher[string, readResult]
}

// NewBatchingReader creates a reader batching through store.GetMany.
func NewBatchingReader(store BulkReader, cfg batch.Config) *BatchingReader {
	flush := func(ctx context.Context, keys []string) ([]readResult, error) {
		found, err := store.GetMany(ctx, keys)
		if err != nil {
			return nil, err
		}
		results := make([]readResult, len(keys))
		for i, key := range keys {
			value, ok := found[key]
			results[i] = readResult{value: value, ok: ok}
		}
		return results, nil
	}

	return &BatchingReader{batcher: batch.New(flush, cfg)}
}

// Get resolves one key through the current batch.
func (r *BatchingReader) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := r.batcher.Do(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return res.value, res.ok, nil
}

// Close flushes the pending batch and rejects further reads.
func (r *BatchingReader) Close() {
	r.batcher.Close()
}
