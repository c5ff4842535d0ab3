package syncmgr

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/AnalineS/tiercache/lib/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

// recordingSend captures the order of propagated keys and fails the
// keys listed in failing.
type recordingSend struct {
	mu      sync.Mutex
	order   []string
	failing map[string]bool
}

func (r *recordingSend) send(_ context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, task.Key)
	if r.failing[task.Key] {
		return errors.New("remote unavailable")
	}
	return nil
}

func TestFlushDrainsInPriorityOrder(t *testing.T) {
	rec := &recordingSend{}
	c := New(Config{Send: rec.send})

	c.Enqueue("n1", []byte("a"), 0, PriorityNormal)
	c.Enqueue("h1", []byte("b"), 0, PriorityHigh)
	c.Enqueue("n2", []byte("c"), 0, PriorityNormal)
	c.Enqueue("h2", []byte("d"), 0, PriorityHigh)

	s := c.Flush(context.Background())

	assert.Equal(t, Summary{Synced: 4}, s)
	assert.Equal(t, 0, c.Len())
	// high before normal, FIFO within each priority
	assert.Equal(t, []string{"h1", "h2", "n1", "n2"}, rec.order)
}

func TestRewriteReplacesQueuedTask(t *testing.T) {
	var payloads [][]byte
	c := New(Config{Send: func(_ context.Context, task Task) error {
		payloads = append(payloads, task.Payload)
		return nil
	}})

	c.Enqueue("k", []byte("old"), 0, PriorityNormal)
	c.Enqueue("k", []byte("new"), 0, PriorityNormal)

	require.Equal(t, 1, c.Len(), "rewritten key must not queue twice")

	s := c.Flush(context.Background())
	assert.Equal(t, Summary{Synced: 1}, s)
	require.Len(t, payloads, 1)
	assert.Equal(t, []byte("new"), payloads[0])
}

func TestFailedTasksRetainedWithAttempts(t *testing.T) {
	rec := &recordingSend{failing: map[string]bool{"bad": true}}
	c := New(Config{Send: rec.send, MaxAttempts: 5})

	c.Enqueue("good", []byte("a"), 0, PriorityNormal)
	c.Enqueue("bad", []byte("b"), 0, PriorityNormal)

	s := c.Flush(context.Background())
	assert.Equal(t, Summary{Synced: 1, Failed: 1}, s)

	// the failed task stays queued for the next pass
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Pending("bad"))
	assert.False(t, c.Pending("good"))

	s = c.Flush(context.Background())
	assert.Equal(t, Summary{Failed: 1}, s)
	assert.Equal(t, 1, c.Len())
}

func TestAttemptLimitDropsTask(t *testing.T) {
	rec := &recordingSend{failing: map[string]bool{"bad": true}}
	c := New(Config{Send: rec.send, MaxAttempts: 3})

	c.Enqueue("bad", []byte("b"), 0, PriorityNormal)

	assert.Equal(t, Summary{Failed: 1}, c.Flush(context.Background()))
	assert.Equal(t, Summary{Failed: 1}, c.Flush(context.Background()))
	// third failure reaches the limit
	assert.Equal(t, Summary{Dropped: 1}, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Len())
}

func TestFlushStopsOnContextAndRetains(t *testing.T) {
	sent := 0
	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{Send: func(context.Context, Task) error {
		sent++
		cancel() // expire mid-flush
		return nil
	}})

	c.Enqueue("a", nil, 0, PriorityNormal)
	c.Enqueue("b", nil, 0, PriorityNormal)
	c.Enqueue("c", nil, 0, PriorityNormal)

	s := c.Flush(ctx)

	assert.Equal(t, 1, sent, "only the first task runs before ctx expires")
	assert.Equal(t, Summary{Synced: 1}, s)
	assert.Equal(t, 2, c.Len(), "unattempted tasks stay queued")
}

func TestRequeueDoesNotSupersedeNewerWrite(t *testing.T) {
	failFirst := true
	var c *Coordinator
	c = New(Config{Send: func(_ context.Context, task Task) error {
		if failFirst {
			failFirst = false
			// a fresh write for the same key lands mid-flush
			c.Enqueue(task.Key, []byte("newer"), 0, PriorityHigh)
			return errors.New("remote unavailable")
		}
		return nil
	}, MaxAttempts: 5})

	c.Enqueue("k", []byte("older"), 0, PriorityNormal)
	_ = c.Flush(context.Background())

	require.Equal(t, 1, c.Len())

	var flushed Task
	c.mu.Lock()
	task, ok := c.queue.next()
	c.mu.Unlock()
	require.True(t, ok)
	flushed = task
	assert.Equal(t, []byte("newer"), flushed.Payload, "stale re-queue must not replace the newer write")
	assert.Equal(t, 0, flushed.Attempts)
}

func TestBackgroundFlusher(t *testing.T) {
	rec := &recordingSend{}
	c := New(Config{Send: rec.send, FlushInterval: 10 * time.Millisecond})

	require.NoError(t, c.Start())
	defer c.Stop()

	c.Enqueue("k", []byte("v"), 0, PriorityNormal)

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("background flusher never drained the queue")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"k"}, rec.order)
}

func TestStartWithoutIntervalIsNoop(t *testing.T) {
	c := New(Config{Send: func(context.Context, Task) error { return nil }})
	require.NoError(t, c.Start())
	c.Stop() // must not panic or block
}
