package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// echoFlush returns "res:<req>" for every request and counts flushes.
func echoFlush(flushes *int32, sizes *[]int, mu *sync.Mutex) FlushFunc[string, string] {
	return func(_ context.Context, reqs []string) ([]string, error) {
		atomic.AddInt32(flushes, 1)
		mu.Lock()
		*sizes = append(*sizes, len(reqs))
		mu.Unlock()

		out := make([]string, len(reqs))
		for i, r := range reqs {
			out[i] = "res:" + r
		}
		return out, nil
	}
}

func TestSingleFlushUnderSizeLimit(t *testing.T) {
	var flushes int32
	var sizes []int
	var mu sync.Mutex

	b := New(echoFlush(&flushes, &sizes, &mu), Config{MaxBatchSize: 10, MaxWait: 20 * time.Millisecond})

	var wg sync.WaitGroup
	results := make([]string, 7)
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := b.Do(context.Background(), fmt.Sprintf("r%d", i))
			if err != nil {
				t.Errorf("Do(r%d): %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&flushes); got != 1 {
		t.Fatalf("expected exactly 1 combined call, got %d", got)
	}
	for i, res := range results {
		if want := fmt.Sprintf("res:r%d", i); res != want {
			t.Errorf("caller %d got %q, want %q", i, res, want)
		}
	}
}

func TestSizeLimitSplitsBatches(t *testing.T) {
	var flushes int32
	var sizes []int
	var mu sync.Mutex

	b := New(echoFlush(&flushes, &sizes, &mu), Config{MaxBatchSize: 5, MaxWait: 20 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := b.Do(context.Background(), fmt.Sprintf("r%d", i)); err != nil {
				t.Errorf("Do(r%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&flushes); got != 2 {
		t.Fatalf("expected 2 combined calls, got %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, s := range sizes {
		if s > 5 {
			t.Errorf("batch of %d exceeds the size limit", s)
		}
		total += s
	}
	if total != 7 {
		t.Errorf("expected 7 requests across batches, got %d", total)
	}
}

func TestTimerFlushesPartialBatch(t *testing.T) {
	var flushes int32
	var sizes []int
	var mu sync.Mutex

	b := New(echoFlush(&flushes, &sizes, &mu), Config{MaxBatchSize: 100, MaxWait: 10 * time.Millisecond})

	start := time.Now()
	res, err := b.Do(context.Background(), "lonely")
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res != "res:lonely" {
		t.Errorf("got %q", res)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("flush happened before the wait window: %v", elapsed)
	}
}

func TestUnsetWaitWindowStillFlushes(t *testing.T) {
	var flushes int32
	var sizes []int
	var mu sync.Mutex

	// no MaxWait configured: a partial batch must still flush via the
	// default window instead of blocking forever
	b := New(echoFlush(&flushes, &sizes, &mu), Config{MaxBatchSize: 100})

	done := make(chan error, 1)
	go func() {
		_, err := b.Do(context.Background(), "lonely")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("partial batch never flushed without an explicit MaxWait")
	}
}

func TestFailureSpreadsToWholeBatch(t *testing.T) {
	boom := errors.New("combined call failed")
	fail := func(context.Context, []string) ([]string, error) { return nil, boom }

	b := New(fail, Config{MaxBatchSize: 3, MaxWait: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Do(context.Background(), fmt.Sprintf("r%d", i))
			if !errors.Is(err, boom) {
				t.Errorf("caller %d: expected the batch error, got %v", i, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestResultCountMismatchIsAnError(t *testing.T) {
	short := func(_ context.Context, reqs []string) ([]string, error) {
		return make([]string, len(reqs)-1), nil
	}

	b := New(short, Config{MaxBatchSize: 2, MaxWait: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Do(context.Background(), "x"); err == nil {
				t.Error("expected an error on result count mismatch")
			}
		}()
	}
	wg.Wait()
}

func TestContextAbandonsWait(t *testing.T) {
	block := make(chan struct{})
	slow := func(_ context.Context, reqs []string) ([]string, error) {
		<-block
		return make([]string, len(reqs)), nil
	}

	b := New(slow, Config{MaxBatchSize: 1, MaxWait: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.Do(ctx, "x")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not honor cancellation")
	}
	close(block)
}

func TestCloseRejectsNewRequests(t *testing.T) {
	b := New(func(_ context.Context, reqs []string) ([]string, error) {
		return make([]string, len(reqs)), nil
	}, DefaultConfig())

	b.Close()

	if _, err := b.Do(context.Background(), "x"); err == nil {
		t.Error("expected an error after Close")
	}
}
