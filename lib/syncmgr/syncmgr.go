// Package syncmgr queues local writes for propagation to the remote
// tier and drains the queue on demand or on a background interval.
//
// Every local write that is not marked skip-remote produces a Task.
// High-priority tasks are typically flushed immediately by the caller;
// normal-priority tasks accumulate until an explicit Flush or until a
// later flush piggybacks them. A flush never fails as a whole: each
// task either propagates (removed), fails (retained with its attempt
// count incremented) or exceeds the attempt limit (dropped). The
// outcome is reported in a Summary, not as an error.
//
// Thread-safety: all exported methods are safe for concurrent use.
package syncmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/bitmark-inc/logger"
)

// Priority of a queued task.
type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Task is one pending remote propagation. A nil Payload marks a
// deletion to propagate rather than a value.
type Task struct {
	Key        string
	Payload    []byte
	TTL        time.Duration
	Priority   Priority
	Attempts   int
	EnqueuedAt time.Time
	Seq        uint64
}

// Summary reports the outcome of one flush pass.
type Summary struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}

// SendFunc propagates one task to the remote tier. The coordinator
// owning the queue supplies this, typically wrapping the remote call in
// its circuit breaker and retry policy.
type SendFunc func(ctx context.Context, task Task) error

// Config for a sync coordinator.
type Config struct {
	// Send performs the actual remote propagation. Required.
	Send SendFunc
	// MaxAttempts drops a task after this many failed flush attempts.
	// Zero means never drop.
	MaxAttempts int
	// FlushInterval enables the background flusher when positive. Zero
	// leaves draining entirely to explicit Flush calls.
	FlushInterval time.Duration
}

// Coordinator owns the pending-task queue.
type Coordinator struct {
	cfg   Config
	log   *logger.L
	clock func() time.Time

	mu    sync.Mutex
	queue *taskQueue
	seq   uint64

	shutdown chan struct{}
	stopped  sync.WaitGroup
}

// New creates an empty coordinator. Start must be called separately to
// enable the background flusher.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		log:   logger.New("syncmgr"),
		clock: time.Now,
		queue: newTaskQueue(),
	}
}

// Enqueue queues one propagation. A task already queued for the same
// key is replaced: the newer payload supersedes the older one and the
// attempt count starts over.
func (c *Coordinator) Enqueue(key string, payload []byte, ttl time.Duration, priority Priority) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.queue.add(Task{
		Key:        key,
		Payload:    payload,
		TTL:        ttl,
		Priority:   priority,
		EnqueuedAt: c.clock(),
		Seq:        c.seq,
	})
	metrics.GetOrCreateCounter(`tiercache_sync_enqueued_total`).Inc()
}

// Len returns the number of pending tasks.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Pending reports whether a propagation is queued for key.
func (c *Coordinator) Pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.contains(key)
}

// Flush drains the queue, attempting every currently-pending task in
// priority order. Failed tasks are re-queued with their attempt count
// incremented; tasks that reach the attempt limit are dropped. Partial
// failure is reported in the Summary, never as an error. When ctx
// expires mid-flush, tasks not yet attempted are retained unchanged.
func (c *Coordinator) Flush(ctx context.Context) Summary {
	// take the current backlog in one step so tasks re-queued by this
	// pass are not attempted twice
	c.mu.Lock()
	backlog := make([]Task, 0, c.queue.Len())
	for {
		task, ok := c.queue.next()
		if !ok {
			break
		}
		backlog = append(backlog, task)
	}
	c.mu.Unlock()

	var summary Summary
	for i, task := range backlog {
		if ctx.Err() != nil {
			// put the rest back untouched
			c.requeue(backlog[i:])
			break
		}

		if err := c.cfg.Send(ctx, task); err != nil {
			task.Attempts++
			if c.cfg.MaxAttempts > 0 && task.Attempts >= c.cfg.MaxAttempts {
				summary.Dropped++
				c.log.Errorf("dropping %q after %d attempts: %v", task.Key, task.Attempts, err)
				continue
			}
			summary.Failed++
			c.log.Warnf("propagation of %q failed (attempt %d): %v", task.Key, task.Attempts, err)
			c.requeue([]Task{task})
			continue
		}
		summary.Synced++
	}

	metrics.GetOrCreateCounter(`tiercache_sync_flushed_total{outcome="synced"}`).Add(summary.Synced)
	metrics.GetOrCreateCounter(`tiercache_sync_flushed_total{outcome="failed"}`).Add(summary.Failed)
	metrics.GetOrCreateCounter(`tiercache_sync_flushed_total{outcome="dropped"}`).Add(summary.Dropped)
	return summary
}

// requeue puts tasks back without superseding newer writes: if a fresh
// task for the same key was enqueued while the flush ran, the stale one
// is discarded.
func (c *Coordinator) requeue(tasks []Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, task := range tasks {
		if c.queue.contains(task.Key) {
			continue
		}
		c.queue.add(task)
	}
}

// --------------------------------------------------------------------------
// Background Flusher
// --------------------------------------------------------------------------

// Start launches the interval flusher. No-op unless FlushInterval is
// positive.
func (c *Coordinator) Start() error {
	if c.cfg.FlushInterval <= 0 {
		return nil
	}
	if c.shutdown != nil {
		return fmt.Errorf("sync flusher already started")
	}
	c.shutdown = make(chan struct{})
	c.stopped.Add(1)
	go c.run()
	return nil
}

// Stop terminates the background flusher and waits for it to exit.
func (c *Coordinator) Stop() {
	if c.shutdown == nil {
		return
	}
	close(c.shutdown)
	c.stopped.Wait()
	c.shutdown = nil
}

func (c *Coordinator) run() {
	defer c.stopped.Done()

	c.log.Infof("background flusher started, interval: %s", c.cfg.FlushInterval)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			c.log.Info("background flusher stopped")
			return
		case <-ticker.C:
			if c.Len() == 0 {
				continue
			}
			s := c.Flush(context.Background())
			c.log.Debugf("interval flush: %d synced, %d failed, %d dropped",
				s.Synced, s.Failed, s.Dropped)
		}
	}
}
