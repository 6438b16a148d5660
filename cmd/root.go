package cmd

import (
	"os"
	"strings"

	"github.com/odcpw/berabundle-sub001/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "berabundle",
	Short: "Scan claimable yield-farming rewards and bundle the claims into one atomic transaction",
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
	rootCmd.PersistentFlags().StringP(config.ChainFlag, "c", "mainnet", "The chain to use (mainnet, bepolia)")

	rootCmd.PersistentFlags().String(config.EthereumRpcBaseUrl, "", `e.g. "https://<hostname>:8545"`)

	rootCmd.PersistentFlags().Int(config.ScannerBatchSize, 12, `Number of reward sources to query concurrently per batch`)
	rootCmd.PersistentFlags().Duration(config.ScannerBatchDelay, 0, `Delay between scan batches (default 75ms)`)
	rootCmd.PersistentFlags().Duration(config.ScannerVaultCacheTtl, 0, `How long the discovered vault list stays fresh (default 5m)`)
	rootCmd.PersistentFlags().Duration(config.ScannerValidatorCacheTtl, 0, `How long the validator list stays fresh (default 15m)`)

	rootCmd.PersistentFlags().String(config.SafeServiceUrl, "", `Base URL of the Safe transaction service (default `+config.DefaultSafeServiceUrl+`)`)
	rootCmd.PersistentFlags().String(config.SafeAddress, "", `Address of the Safe to propose bundles to`)

	rootCmd.PersistentFlags().String(config.KeystorePath, "", `Path to the signer's keystore JSON file`)
	rootCmd.PersistentFlags().String(config.SignerAddress, "", `Address of the signing account`)

	rootCmd.PersistentFlags().String(config.MetadataBaseUrl, "", `Base URL of the vault/validator metadata feed`)
	rootCmd.PersistentFlags().String(config.PricesBaseUrl, "", `Base URL of the price oracle`)
	rootCmd.PersistentFlags().Duration(config.PricesCacheTtl, 0, `How long price quotes stay fresh (default 5m)`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(runVersionCmd)

	scanCmd.Flags().String("wallet", "", "The wallet address to scan rewards for (required)")
	scanCmd.Flags().Bool("force-refresh", false, "Bypass the discovery caches")

	claimCmd.Flags().String("wallet", "", "The wallet address holding the rewards (required)")
	claimCmd.Flags().Bool("safe", false, "Propose the bundle to the configured Safe")
	claimCmd.Flags().Bool("eoa", false, "Broadcast the claims directly from the signer account")

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
