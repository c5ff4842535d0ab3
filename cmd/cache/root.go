package cache

import (
	"github.com/AnalineS/tiercache/cmd/util"
	"github.com/AnalineS/tiercache/lib/breaker"
	"github.com/AnalineS/tiercache/lib/cache/durable"
	"github.com/AnalineS/tiercache/lib/cache/volatile"
	"github.com/AnalineS/tiercache/lib/coordinator"
	"github.com/AnalineS/tiercache/lib/retry"
	"github.com/AnalineS/tiercache/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	coord *coordinator.Coordinator

	// remoteBulk is set when running online; mget reads through it
	remoteBulk client.BulkReader

	// CacheCommands represents the cache command group
	CacheCommands = &cobra.Command{
		Use:               "cache",
		Short:             "Perform tiered cache operations",
		PersistentPreRunE: setupCoordinator,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common flags to the cache command
	util.SetupRPCClientFlags(CacheCommands)
	util.SetupCacheFlags(CacheCommands)

	// Add subcommands
	CacheCommands.AddCommand(getCmd)
	CacheCommands.AddCommand(mgetCmd)
	CacheCommands.AddCommand(setCmd)
	CacheCommands.AddCommand(delCmd)
	CacheCommands.AddCommand(clearCmd)
	CacheCommands.AddCommand(statsCmd)
	CacheCommands.AddCommand(syncCmd)
	CacheCommands.AddCommand(perfCmd)
}

// setupCoordinator builds the full cache stack: both local tiers, the
// remote store client (unless running offline) and the coordinator on
// top of them.
func setupCoordinator(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := util.InitLogging(); err != nil {
		return err
	}

	cfg := coordinator.Config{
		Volatile: volatile.New(),
		Breakers: breaker.NewRegistry(breaker.DefaultConfig()),
		Retry:    retry.DefaultPolicy(),
	}

	// Durable tier on disk, with the configured quota
	quota := int64(viper.GetInt("quota-mb")) * 1024 * 1024
	storage, err := durable.NewLevelDBStorage(viper.GetString("data-dir"), quota)
	if err != nil {
		return err
	}
	cfg.Durable = durable.New(storage)

	// Remote store client
	if !viper.GetBool("offline") {
		s, err := util.GetSerializer()
		if err != nil {
			return err
		}
		t, err := util.GetTransport()
		if err != nil {
			return err
		}

		clientConfig := util.GetClientConfig()
		remote, err := client.NewRemoteStore(*clientConfig, t, s)
		if err != nil {
			return err
		}
		cfg.Remote = remote
		cfg.Destination = clientConfig.Endpoints[0]
		remoteBulk = remote.(client.BulkReader)
	}

	coord, err = coordinator.New(cfg)
	return err
}
