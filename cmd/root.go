package cmd

import (
	"fmt"
	"os"

	"github.com/AnalineS/tiercache/cmd/cache"
	"github.com/AnalineS/tiercache/cmd/serve"
	"github.com/AnalineS/tiercache/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tiercache",
		Short: "multi-tier resilient cache",
		Long: fmt.Sprintf(`tiercache (v%s)

A multi-tier cache with a volatile in-memory tier, a durable local
tier and an optional remote store, coordinated with circuit breaking,
retries and asynchronous write propagation.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tiercache",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tiercache v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(cache.CacheCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
