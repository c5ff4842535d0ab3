package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AnalineS/tiercache/lib/breaker"
	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/AnalineS/tiercache/lib/retry"
	"github.com/AnalineS/tiercache/lib/syncmgr"
	"github.com/VictoriaMetrics/metrics"
	"github.com/bitmark-inc/logger"
	"golang.org/x/sync/singleflight"
)

// ReadOptions control one read.
type ReadOptions struct {
	// ForceRefresh bypasses the local tiers and reads from the remote
	// store, refreshing the local tiers on a hit.
	ForceRefresh bool
	// SkipRemote answers from the local tiers only.
	SkipRemote bool
	// StaleWhileRevalidate serves an expired local entry once while a
	// background refresh runs.
	StaleWhileRevalidate bool
	// Strict surfaces remote errors instead of degrading to a miss.
	Strict bool
	// TTL applies to entries backfilled from the remote store. Zero
	// means backfilled entries never expire locally.
	TTL time.Duration
}

// WriteOptions control one write.
type WriteOptions struct {
	TTL time.Duration
	// SkipRemote keeps the write local: no sync task is queued.
	SkipRemote bool
	// Priority high triggers an immediate propagation attempt; normal
	// leaves the task queued for the next flush.
	Priority syncmgr.Priority
}

// Config wires the coordinator. Volatile and Durable are required;
// Remote may be nil for a purely local deployment.
type Config struct {
	Volatile cache.LocalTier
	Durable  cache.LocalTier
	Remote   cache.RemoteStore
	Breakers *breaker.Registry
	Retry    retry.Policy
	// Sync tunes the propagation queue; its Send field is ignored, the
	// coordinator supplies its own propagation path.
	Sync syncmgr.Config
	// Online reports external connectivity. Nil means always online.
	Online func() bool
	// Destination labels the remote store for breaker and metrics
	// purposes (typically its host).
	Destination string
}

// Stats is a point-in-time snapshot of coordinator activity.
type Stats struct {
	VolatileHits   uint64           `json:"volatile_hits"`
	DurableHits    uint64           `json:"durable_hits"`
	RemoteHits     uint64           `json:"remote_hits"`
	Misses         uint64           `json:"misses"`
	StaleServed    uint64           `json:"stale_served"`
	RemoteFailures uint64           `json:"remote_failures"`
	PendingSync    int              `json:"pending_sync"`
	Breakers       []breaker.Status `json:"breakers"`
}

// Coordinator is the tiered cache front end. Safe for concurrent use.
type Coordinator struct {
	cfg  Config
	log  *logger.L
	sync *syncmgr.Coordinator

	// collapses identical concurrent remote reads
	flight singleflight.Group

	volatileHits   atomic.Uint64
	durableHits    atomic.Uint64
	remoteHits     atomic.Uint64
	misses         atomic.Uint64
	staleServed    atomic.Uint64
	remoteFailures atomic.Uint64
}

// New validates the config and creates the coordinator. The sync queue
// is created here so its propagation path runs through the
// coordinator's breaker and retry policy.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Volatile == nil || cfg.Durable == nil {
		return nil, fmt.Errorf("coordinator requires both local tiers")
	}
	if cfg.Breakers == nil {
		cfg.Breakers = breaker.NewRegistry(breaker.DefaultConfig())
	}
	if cfg.Destination == "" {
		cfg.Destination = "remote"
	}

	c := &Coordinator{
		cfg: cfg,
		log: logger.New("coordinator"),
	}

	syncCfg := cfg.Sync
	syncCfg.Send = c.propagate
	c.sync = syncmgr.New(syncCfg)

	return c, nil
}

// Sync exposes the propagation queue, e.g. to start its background
// flusher or inspect pending tasks.
func (c *Coordinator) Sync() *syncmgr.Coordinator { return c.sync }

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// Read resolves key through the tiers. It returns (nil, false, nil) on
// a miss; remote failures only produce an error under Strict.
func (c *Coordinator) Read(ctx context.Context, key string, opts ReadOptions) ([]byte, bool, error) {
	if !opts.ForceRefresh {
		if value, found := c.readLocal(key, opts); found {
			return value, true, nil
		}
	}

	if opts.SkipRemote {
		c.miss()
		return nil, false, nil
	}

	if !c.remoteUsable() {
		c.miss()
		if opts.Strict {
			return nil, false, fmt.Errorf("%w: %s", cache.ErrNotReady, c.cfg.Destination)
		}
		return nil, false, nil
	}

	value, found, err := c.fetchRemote(ctx, key, opts.TTL)
	if err != nil {
		c.remoteFailures.Add(1)
		metrics.GetOrCreateCounter(`tiercache_remote_failures_total{op="get"}`).Inc()
		c.log.Warnf("remote read of %q failed: %v", key, err)
		if opts.Strict {
			return nil, false, err
		}
		c.miss()
		return nil, false, nil
	}
	if !found {
		c.miss()
		return nil, false, nil
	}

	c.remoteHits.Add(1)
	metrics.GetOrCreateCounter(`tiercache_read_total{tier="remote"}`).Inc()
	return value, true, nil
}

// readLocal tries the two local tiers, backfilling the volatile tier on
// a durable hit. With StaleWhileRevalidate an expired entry is served
// once and a detached refresh is started.
func (c *Coordinator) readLocal(key string, opts ReadOptions) ([]byte, bool) {
	// snapshot any expired copy before the lazy-expiring Get below can
	// delete it; it may be the only copy left when the durable write was
	// quota-skipped
	var stale cache.Entry
	var haveStale bool
	if opts.StaleWhileRevalidate {
		stale, haveStale = c.staleEntry(key)
	}

	if value, ok := c.cfg.Volatile.Get(key); ok {
		c.volatileHits.Add(1)
		metrics.GetOrCreateCounter(`tiercache_read_total{tier="volatile"}`).Inc()
		return value, true
	}

	if entry, ok := c.cfg.Durable.Entry(key); ok && !entry.Expired() {
		c.durableHits.Add(1)
		metrics.GetOrCreateCounter(`tiercache_read_total{tier="durable"}`).Inc()

		// backfill with the entry's remaining lifetime
		if err := c.cfg.Volatile.Set(key, entry.Value, remainingTTL(entry)); err != nil {
			c.log.Warnf("volatile backfill of %q failed: %v", key, err)
		}
		return entry.Value, true
	}

	if haveStale {
		// both tiers drop the entry so it is served at most once
		_ = c.cfg.Volatile.Delete(key)
		_ = c.cfg.Durable.Delete(key)
		c.staleServed.Add(1)
		metrics.GetOrCreateCounter(`tiercache_read_total{tier="stale"}`).Inc()
		go c.refresh(key, opts.TTL)
		return stale.Value, true
	}
	return nil, false
}

// staleEntry snapshots an expired entry from either local tier without
// removing it.
func (c *Coordinator) staleEntry(key string) (cache.Entry, bool) {
	for _, tier := range []cache.LocalTier{c.cfg.Volatile, c.cfg.Durable} {
		if entry, ok := tier.Entry(key); ok && entry.Expired() {
			return entry, true
		}
	}
	return cache.Entry{}, false
}

// refresh re-reads key from the remote store outside any caller's
// request, backfilling the local tiers on success.
func (c *Coordinator) refresh(key string, ttl time.Duration) {
	if !c.remoteUsable() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, _, err := c.fetchRemote(ctx, key, ttl); err != nil {
		c.remoteFailures.Add(1)
		c.log.Debugf("background refresh of %q failed: %v", key, err)
	}
}

// fetchRemote performs the deduplicated remote read. Concurrent calls
// for the same key share one network request; the hit backfills both
// local tiers.
func (c *Coordinator) fetchRemote(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	type result struct {
		value []byte
		found bool
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		var value []byte
		var found bool

		err := c.breaker().Do(func() error {
			return c.cfg.Retry.Execute(ctx, func(ctx context.Context) error {
				var err error
				value, found, err = c.cfg.Remote.Get(ctx, key)
				return err
			})
		})
		if err != nil {
			return nil, err
		}

		if found {
			if err := c.cfg.Durable.Set(key, value, ttl); err != nil {
				c.log.Warnf("durable backfill of %q failed: %v", key, err)
			}
			if err := c.cfg.Volatile.Set(key, value, ttl); err != nil {
				c.log.Warnf("volatile backfill of %q failed: %v", key, err)
			}
		}
		return result{value: value, found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.value, r.found, nil
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Write stores key in both local tiers and queues remote propagation.
// Local success is sufficient: remote propagation failures never fail
// the write, a durable-tier quota failure is only logged.
func (c *Coordinator) Write(ctx context.Context, key string, value []byte, opts WriteOptions) error {
	if err := c.cfg.Volatile.Set(key, value, opts.TTL); err != nil {
		return fmt.Errorf("volatile write of %q failed: %w", key, err)
	}

	if err := c.cfg.Durable.Set(key, value, opts.TTL); err != nil {
		// the volatile tier holds the value; durable is best effort
		c.log.Warnf("durable write of %q failed: %v", key, err)
		metrics.GetOrCreateCounter(`tiercache_durable_write_failures_total`).Inc()
	}

	if opts.SkipRemote || c.cfg.Remote == nil {
		return nil
	}

	c.sync.Enqueue(key, value, opts.TTL, opts.Priority)

	if opts.Priority == syncmgr.PriorityHigh {
		// detached so remote latency never delays the write; a failed
		// attempt leaves the task queued
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			c.sync.Flush(ctx)
		}()
	}
	return nil
}

// Delete removes key from every tier. The remote delete is best effort:
// on failure a deletion task is queued for a later flush.
func (c *Coordinator) Delete(ctx context.Context, key string) error {
	if err := c.cfg.Volatile.Delete(key); err != nil {
		return err
	}
	if err := c.cfg.Durable.Delete(key); err != nil {
		return err
	}

	if c.cfg.Remote == nil {
		return nil
	}

	err := c.breaker().Do(func() error {
		return c.cfg.Retry.Execute(ctx, func(ctx context.Context) error {
			return c.cfg.Remote.Delete(ctx, key)
		})
	})
	if err != nil {
		c.remoteFailures.Add(1)
		c.log.Warnf("remote delete of %q failed, queueing: %v", key, err)
		c.sync.Enqueue(key, nil, 0, syncmgr.PriorityNormal)
	}
	return nil
}

// Clear empties every tier. The remote clear is best effort and only
// logged on failure.
func (c *Coordinator) Clear(ctx context.Context) error {
	if err := c.cfg.Volatile.Clear(); err != nil {
		return err
	}
	if err := c.cfg.Durable.Clear(); err != nil {
		return err
	}

	if c.cfg.Remote == nil {
		return nil
	}

	err := c.breaker().Do(func() error {
		return c.cfg.Retry.Execute(ctx, func(ctx context.Context) error {
			return c.cfg.Remote.Clear(ctx)
		})
	})
	if err != nil {
		c.remoteFailures.Add(1)
		c.log.Warnf("remote clear failed: %v", err)
	}
	return nil
}

// ForceSync drains the propagation queue now.
func (c *Coordinator) ForceSync(ctx context.Context) syncmgr.Summary {
	return c.sync.Flush(ctx)
}

// Stats returns a snapshot of coordinator activity.
func (c *Coordinator) Stats() Stats {
	return Stats{
		VolatileHits:   c.volatileHits.Load(),
		DurableHits:    c.durableHits.Load(),
		RemoteHits:     c.remoteHits.Load(),
		Misses:         c.misses.Load(),
		StaleServed:    c.staleServed.Load(),
		RemoteFailures: c.remoteFailures.Load(),
		PendingSync:    c.sync.Len(),
		Breakers:       c.cfg.Breakers.Snapshot(),
	}
}

// --------------------------------------------------------------------------
// Internals
// --------------------------------------------------------------------------

// propagate is the sync queue's send path: one task through the
// breaker and the retry policy. A nil payload propagates a deletion.
func (c *Coordinator) propagate(ctx context.Context, task syncmgr.Task) error {
	if c.cfg.Remote == nil {
		return fmt.Errorf("%w: no remote store configured", cache.ErrNotReady)
	}
	return c.breaker().Do(func() error {
		return c.cfg.Retry.Execute(ctx, func(ctx context.Context) error {
			if task.Payload == nil {
				return c.cfg.Remote.Delete(ctx, task.Key)
			}
			meta := map[string]string{"priority": task.Priority.String()}
			return c.cfg.Remote.Set(ctx, task.Key, task.Payload, task.TTL, meta)
		})
	})
}

func (c *Coordinator) breaker() *breaker.Breaker {
	return c.cfg.Breakers.Get(c.cfg.Destination)
}

// remoteUsable gates the remote path on configuration, connectivity and
// the store's own readiness.
func (c *Coordinator) remoteUsable() bool {
	if c.cfg.Remote == nil {
		return false
	}
	if c.cfg.Online != nil && !c.cfg.Online() {
		return false
	}
	return c.cfg.Remote.IsReady()
}

func (c *Coordinator) miss() {
	c.misses.Add(1)
	metrics.GetOrCreateCounter(`tiercache_read_total{tier="miss"}`).Inc()
}

// remainingTTL converts an entry's absolute expiry into a TTL usable
// for backfilling another tier. Non-expiring entries stay non-expiring.
func remainingTTL(entry cache.Entry) time.Duration {
	if entry.TTL <= 0 {
		return 0
	}
	remaining := time.Until(entry.CreatedAt.Add(entry.TTL))
	if remaining <= 0 {
		// raced expiry; keep it visible for at most a moment
		return time.Millisecond
	}
	return remaining
}
