package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnalineS/tiercache/lib/coordinator"
	"github.com/AnalineS/tiercache/lib/syncmgr"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Performance testing tool for the tiered cache",
	RunE:  runPerf,
}

func init() {
	perfCmd.Flags().Int("ops", 10000, "operations per benchmark")
	perfCmd.Flags().Int("threads", 10, "number of concurrent workers")
	perfCmd.Flags().Int("keys", 100, "how many distinct keys to spread the operations over")
	perfCmd.Flags().Bool("local-only", false, "benchmark the local tiers only")
}

func runPerf(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	ops := viper.GetInt("ops")
	threads := viper.GetInt("threads")
	keySpread := viper.GetInt("keys")
	localOnly := viper.GetBool("local-only")

	fmt.Println("Performance testing tool for the tiered cache")
	fmt.Println()
	fmt.Printf("Operations: %d, Threads: %d, Keys: %d, Local only: %v\n", ops, threads, keySpread, localOnly)
	fmt.Println()

	registry := metrics.NewRegistry()
	ctx := context.Background()

	writeOpts := coordinator.WriteOptions{
		SkipRemote: localOnly,
		Priority:   syncmgr.PriorityNormal,
	}
	readOpts := coordinator.ReadOptions{SkipRemote: localOnly}

	benchmarks := []struct {
		name string
		op   func(key string) error
	}{
		{"set", func(key string) error {
			return coord.Write(ctx, key, []byte("benchmark-value"), writeOpts)
		}},
		{"get", func(key string) error {
			_, _, err := coord.Read(ctx, key, readOpts)
			return err
		}},
		{"del", func(key string) error {
			return coord.Delete(ctx, key)
		}},
	}

	for _, bench := range benchmarks {
		timer := metrics.NewRegisteredTimer(bench.name, registry)
		errCount := metrics.NewRegisteredCounter(bench.name+".errors", registry)

		runBench(ops, threads, keySpread, func(key string) {
			start := time.Now()
			if err := bench.op(key); err != nil {
				errCount.Inc(1)
			}
			timer.UpdateSince(start)
		})

		printTimer(bench.name, timer, errCount)
	}

	// drain anything the set benchmark queued
	if !localOnly {
		s := coord.ForceSync(ctx)
		fmt.Printf("\nfinal sync: synced=%d, failed=%d, dropped=%d\n", s.Synced, s.Failed, s.Dropped)
	}
	return nil
}

// runBench spreads count operations over the worker pool, cycling
// through the key space.
func runBench(count, threads, keySpread int, op func(key string)) {
	var wg sync.WaitGroup
	work := make(chan string, threads)

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				op(key)
			}
		}()
	}

	for i := 0; i < count; i++ {
		work <- fmt.Sprintf("__perf-%d", i%keySpread)
	}
	close(work)
	wg.Wait()
}

// printTimer reports one benchmark's latency distribution
func printTimer(name string, timer metrics.Timer, errCount metrics.Counter) {
	snapshot := timer.Snapshot()
	fmt.Printf("%-8s%8d ops\tmean %-12s p95 %-12s p99 %-12s max %-12s errors %d\n",
		name,
		snapshot.Count(),
		time.Duration(int64(snapshot.Mean())),
		time.Duration(int64(snapshot.Percentile(0.95))),
		time.Duration(int64(snapshot.Percentile(0.99))),
		time.Duration(snapshot.Max()),
		errCount.Count(),
	)
}
