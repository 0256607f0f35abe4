package cmd

import (
	"os"
	"strings"

	"github.com/ethbind/ethbind/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ethbind",
	Short: "Generate and drive typed Go bindings for Ethereum contracts",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.EthereumRpcBaseUrl, "", `e.g. "http://<hostname>:8545"`)
	rootCmd.PersistentFlags().String(config.EthereumWsUrl, "", `e.g. "ws://<hostname>:8546" (optional, enables live subscriptions)`)

	rootCmd.PersistentFlags().String(config.SignerPrivateKey, "", `Hex-encoded signing key; prefer the ETHBIND_SIGNER_PRIVATE_KEY environment variable`)

	rootCmd.PersistentFlags().Duration(config.PipelinePollInterval, 0, `Delay between confirmation polls, e.g. "7s"`)
	rootCmd.PersistentFlags().Duration(config.PipelineMaxWait, 0, `Upper bound on the confirmation wait, e.g. "5m"`)
	rootCmd.PersistentFlags().Uint64(config.PipelineConfirmations, 0, `Blocks that must build on a transaction before it counts as confirmed`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `"true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to serve prometheus metrics on`)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
