package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AnalineS/tiercache/lib/batch"
	"github.com/AnalineS/tiercache/lib/coordinator"
	"github.com/AnalineS/tiercache/lib/syncmgr"
	"github.com/AnalineS/tiercache/rpc/client"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key through the tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			forceRefresh, _ := cmd.Flags().GetBool("force-refresh")
			skipRemote, _ := cmd.Flags().GetBool("skip-remote")
			stale, _ := cmd.Flags().GetBool("stale")

			value, found, err := coord.Read(context.Background(), key, coordinator.ReadOptions{
				ForceRefresh:         forceRefresh,
				SkipRemote:           skipRemote,
				StaleWhileRevalidate: stale,
			})
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", key, found, value)
			return nil
		},
	}
	mgetCmd = &cobra.Command{
		Use:   "mget [key]...",
		Short: "Reads several keys from the remote store in one combined round trip",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteBulk == nil {
				return fmt.Errorf("mget needs the remote store, cannot run with --offline")
			}

			reader := client.NewBatchingReader(remoteBulk, batch.Config{
				MaxBatchSize: len(args),
				MaxWait:      50 * time.Millisecond,
			})
			defer reader.Close()

			// concurrent single-key reads coalesce into one GetMany call
			type result struct {
				value []byte
				found bool
				err   error
			}
			results := make([]result, len(args))
			var wg sync.WaitGroup
			for i, key := range args {
				wg.Add(1)
				go func(i int, key string) {
					defer wg.Done()
					value, found, err := reader.Get(context.Background(), key)
					results[i] = result{value: value, found: found, err: err}
				}(i, key)
			}
			wg.Wait()

			for i, key := range args {
				if results[i].err != nil {
					return results[i].err
				}
				fmt.Printf("key=%s, found=%v, value=%s\n", key, results[i].found, results[i].value)
			}
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Writes a key-value pair to the local tiers and queues remote propagation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ttl, _ := cmd.Flags().GetDuration("ttl")
			skipRemote, _ := cmd.Flags().GetBool("skip-remote")
			high, _ := cmd.Flags().GetBool("high-priority")

			priority := syncmgr.PriorityNormal
			if high {
				priority = syncmgr.PriorityHigh
			}

			err := coord.Write(context.Background(), key, []byte(value), coordinator.WriteOptions{
				TTL:        ttl,
				SkipRemote: skipRemote,
				Priority:   priority,
			})
			if err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key from every tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := coord.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all entries from every tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := coord.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("clear successfully")
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints a snapshot of coordinator activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(coord.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Drains the pending propagation queue against the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			s := coord.ForceSync(ctx)
			fmt.Printf("synced=%d, failed=%d, dropped=%d\n", s.Synced, s.Failed, s.Dropped)
			return nil
		},
	}
)

func init() {
	getCmd.Flags().Bool("force-refresh", false, "bypass local tiers and refresh from the remote store")
	getCmd.Flags().Bool("skip-remote", false, "answer from local tiers only")
	getCmd.Flags().Bool("stale", false, "serve an expired entry once while refreshing")

	setCmd.Flags().Duration("ttl", 0, "time to live, 0 means no expiry")
	setCmd.Flags().Bool("skip-remote", false, "keep the write local")
	setCmd.Flags().Bool("high-priority", false, "propagate to the remote store immediately")
}
