package cmd

import (
	"fmt"

	prometheusMetrics "github.com/odcpw/berabundle-sub001/internal/metrics/prometheus"
	"github.com/odcpw/berabundle-sub001/pkg/bundle"
	"github.com/odcpw/berabundle-sub001/pkg/bundle/proposer"
	"github.com/odcpw/berabundle-sub001/pkg/bundle/signer"
	"github.com/odcpw/berabundle-sub001/pkg/clients/safe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim every reward in one bundle, proposed to a Safe or sent directly",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		cfg := app.Config
		l := app.Logger
		defer l.Sync() //nolint:errcheck

		wallet, err := cmd.Flags().GetString("wallet")
		if err != nil {
			return err
		}
		if wallet == "" {
			return fmt.Errorf("a wallet address is required (--wallet)")
		}
		useSafe, err := cmd.Flags().GetBool("safe")
		if err != nil {
			return err
		}
		useEoa, err := cmd.Flags().GetBool("eoa")
		if err != nil {
			return err
		}
		if useSafe == useEoa {
			return fmt.Errorf("exactly one of --safe or --eoa is required")
		}

		ctx, cancel := withShutdown(cmd.Context(), l)
		defer cancel()

		if cfg.PrometheusConfig.Enabled {
			serverShutdown := make(chan bool)
			defer close(serverShutdown)
			ps := prometheusMetrics.NewPrometheusServer(&prometheusMetrics.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := ps.Start(serverShutdown); err != nil {
				return err
			}
		}

		aggregated, err := scanAndAggregate(ctx, app, wallet, false, true)
		if err != nil {
			return err
		}
		if len(aggregated.Records) == 0 {
			fmt.Println("No claimable rewards found, nothing to do.")
			return nil
		}

		printRewards(aggregated.Records)
		fmt.Printf("\nTotal claimable value: %s\n\n", aggregated.FormatTotalUsd())

		operations, err := bundle.BuildClaimOperations(aggregated.Records)
		if err != nil {
			l.Sugar().Errorw("Failed to assemble claim operations", zap.Error(err))
			return err
		}

		var format bundle.BundleFormat
		if useSafe {
			if cfg.SafeConfig.SafeAddress == "" {
				return fmt.Errorf("a safe address is required (--safe.address)")
			}
			format = bundle.SafeFormat(&bundle.SafeBundleData{
				SafeAddress: cfg.SafeConfig.SafeAddress,
				Operations:  operations,
			})
		} else {
			format = bundle.EoaList(operations)
		}

		bundleSigner := signer.NewKeystoreSigner(
			cfg.KeystoreConfig.Path,
			cfg.KeystoreConfig.SignerAddress,
			keystorePasswordFromEnv,
			l,
		)

		safeClient := safe.NewSafeClient(cfg.SafeConfig.ServiceUrl, l)
		p := proposer.NewProposer(safeClient, app.EthClient, &proposer.ProposerConfig{
			ChainId:          cfg.GetChainId(),
			MultiSendAddress: app.ContractStore.MultiSendCallOnly,
		}, app.MetricsSink, l)

		// Submission duration is recorded inside the proposer itself.
		var result *bundle.ProposalResult
		if data, ok := format.AsSafeFormat(); ok {
			result = p.Propose(ctx, data, bundleSigner)
		} else if ops, ok := format.AsEoaList(); ok {
			result = p.SendDirect(ctx, ops, bundleSigner)
		}

		if !result.Success {
			l.Sugar().Errorw("Bundle submission failed", zap.String("error", result.Error))
			return fmt.Errorf("bundle submission failed: %s", result.Error)
		}

		fmt.Printf("Bundle submitted (%d claims).\n", len(operations))
		if result.SafeTxHash != "" {
			fmt.Printf("Safe transaction hash: %s\n", result.SafeTxHash)
		}
		if result.TransactionUrl != "" {
			fmt.Printf("Review and execute: %s\n", result.TransactionUrl)
		}

		return nil
	},
}
