// Package batch accumulates independent logical requests into combined
// round trips. A batch flushes when it reaches its size limit or when the
// wait window since its first request elapses, whichever happens first.
// Results are distributed back to the callers by position; if the
// combined call fails, every caller in that batch receives the failure,
// there are no partial-batch semantics.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// FlushFunc performs the combined call for one batch. It must return one
// result per request, in request order.
type FlushFunc[Req, Res any] func(ctx context.Context, reqs []Req) ([]Res, error)

// Config tunes batching behavior.
type Config struct {
	// MaxBatchSize flushes the batch as soon as this many requests are
	// pending.
	MaxBatchSize int
	// MaxWait flushes the batch this long after its first request was
	// added, even if it is not full. Non-positive values fall back to
	// the default window; a batch below the size limit must always
	// flush eventually.
	MaxWait time.Duration
}

// DefaultConfig batches up to 10 requests within a 50ms window.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 10,
		MaxWait:      50 * time.Millisecond,
	}
}

type outcome[Res any] struct {
	res Res
	err error
}

type waiter[Req, Res any] struct {
	req Req
	ch  chan outcome[Res]
}

// Batcher collects requests and flushes them in combined calls. Safe for
// concurrent use.
type Batcher[Req, Res any] struct {
	fn  FlushFunc[Req, Res]
	cfg Config

	mu      sync.Mutex
	pending []waiter[Req, Res]
	timer   *time.Timer
	closed  bool
}

// New creates a batcher flushing through fn.
func New[Req, Res any](fn FlushFunc[Req, Res], cfg Config) *Batcher[Req, Res] {
	if cfg.MaxBatchSize < 1 {
		cfg.MaxBatchSize = 1
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultConfig().MaxWait
	}
	return &Batcher[Req, Res]{fn: fn, cfg: cfg}
}

// Do submits one request and blocks until its batch settles or ctx is
// done. Abandoning a call via ctx does not remove the request from its
// batch; only the caller stops waiting. The combined call itself runs
// detached from any individual caller's ctx.
func (b *Batcher[Req, Res]) Do(ctx context.Context, req Req) (Res, error) {
	var zero Res

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return zero, fmt.Errorf("batcher is closed")
	}

	w := waiter[Req, Res]{req: req, ch: make(chan outcome[Res], 1)}
	b.pending = append(b.pending, w)

	if len(b.pending) >= b.cfg.MaxBatchSize {
		taken := b.take()
		b.mu.Unlock()
		// the flush runs detached so every caller, including the one that
		// filled the batch, can stop waiting on its own ctx
		go b.flush(context.Background(), taken, "size")
	} else {
		if len(b.pending) == 1 {
			// first request arms the window timer
			b.timer = time.AfterFunc(b.cfg.MaxWait, func() {
				b.mu.Lock()
				taken := b.take()
				b.mu.Unlock()
				b.flush(context.Background(), taken, "timer")
			})
		}
		b.mu.Unlock()
	}

	select {
	case o := <-w.ch:
		return o.res, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close flushes any pending batch and rejects further requests.
func (b *Batcher[Req, Res]) Close() {
	b.mu.Lock()
	b.closed = true
	taken := b.take()
	b.mu.Unlock()
	b.flush(context.Background(), taken, "close")
}

// take removes the current batch and disarms the timer. Must be called
// with the mutex held.
func (b *Batcher[Req, Res]) take() []waiter[Req, Res] {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	taken := b.pending
	b.pending = nil
	return taken
}

func (b *Batcher[Req, Res]) flush(ctx context.Context, batch []waiter[Req, Res], reason string) {
	if len(batch) == 0 {
		return
	}
	metrics.GetOrCreateCounter(
		fmt.Sprintf(`tiercache_batch_flushes_total{reason=%q}`, reason),
	).Inc()

	reqs := make([]Req, len(batch))
	for i, w := range batch {
		reqs[i] = w.req
	}

	results, err := b.fn(ctx, reqs)
	if err == nil && len(results) != len(reqs) {
		err = fmt.Errorf("batch returned %d results for %d requests", len(results), len(reqs))
	}

	if err != nil {
		// all-or-nothing: the whole batch shares the failure
		for _, w := range batch {
			w.ch <- outcome[Res]{err: err}
		}
		return
	}

	for i, w := range batch {
		w.ch <- outcome[Res]{res: results[i]}
	}
}
