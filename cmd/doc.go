// Package cmd implements the command-line interface for the tiercache
// multi-tier cache. It provides a hierarchical command structure with
// operations for running the remote store server and interacting with
// the cache as a client.
//
// The package is organized into several subpackages:
//
//   - cache: Commands for cache operations (get, mget, set, del, clear, stats, sync, perf)
//   - serve: Commands for starting and configuring the remote store server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tiercache -help for a list of all commands.
package cmd
