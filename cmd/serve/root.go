package serve

import (
	"strings"

	cmdUtil "github.com/AnalineS/tiercache/cmd/util"
	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/AnalineS/tiercache/rpc/server"
	"github.com/AnalineS/tiercache/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the remote store server",
		Long:    `Start the remote store server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TIERCACHE_<flag> (e.g. TIERCACHE_ENDPOINT=0.0.0.0:8090)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8090", cmdUtil.WrapString("The address on which the server will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Request handling timeout in seconds"))

	key = "log-dir"
	ServeCmd.PersistentFlags().String(key, "log", cmdUtil.WrapString("Directory for log files"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("The level at which logs will be output (trace, debug, info, warn, error, critical)"))

	key = "log-console"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to also log to the console"))
}

// processConfig reads the configuration from the command line flags and
// environment variables into the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.LogDir = viper.GetString("log-dir")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.LogConsole = viper.GetBool("log-console")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	// Parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		s,
	)

	return serv.Serve()
}

// initConfig reads in config from ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tiercache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
