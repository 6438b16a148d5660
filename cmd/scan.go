package cmd

import (
	"context"
	"fmt"

	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/rewards/aggregator"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every reward source for claimable rewards and print a priced summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		l := app.Logger
		defer l.Sync() //nolint:errcheck

		wallet, err := cmd.Flags().GetString("wallet")
		if err != nil {
			return err
		}
		if wallet == "" {
			return fmt.Errorf("a wallet address is required (--wallet)")
		}
		forceRefresh, err := cmd.Flags().GetBool("force-refresh")
		if err != nil {
			return err
		}

		ctx, cancel := withShutdown(cmd.Context(), l)
		defer cancel()

		aggregated, err := scanAndAggregate(ctx, app, wallet, forceRefresh, true)
		if err != nil {
			return err
		}

		printRewards(aggregated.Records)
		fmt.Printf("\nTotal claimable value: %s\n", aggregated.FormatTotalUsd())

		return nil
	},
}

// scanAndAggregate runs discovery, the concurrent scan and price aggregation.
// It is shared by the scan and claim commands.
func scanAndAggregate(ctx context.Context, app *app, wallet string, forceRefresh bool, showProgress bool) (*aggregator.AggregatedRewards, error) {
	l := app.Logger

	sources, err := app.Discovery.DiscoverSources(ctx, forceRefresh)
	if err != nil {
		l.Sugar().Errorw("Failed to discover reward sources", zap.Error(err))
		return nil, err
	}
	l.Sugar().Infow("Discovered reward sources", zap.Int("count", len(sources)))

	var onProgress func(processed int, found int, total int)
	if showProgress {
		bar := progressbar.NewOptions(len(sources),
			progressbar.OptionSetDescription("Scanning reward sources"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		onProgress = func(processed int, found int, total int) {
			_ = bar.Set(processed)
		}
	}

	// Scan duration is recorded inside the scanner itself.
	records, err := app.Scanner.Scan(ctx, wallet, sources, onProgress)
	if err != nil {
		l.Sugar().Errorw("Scan failed", zap.Error(err))
		return nil, err
	}

	return app.Aggregator.Aggregate(ctx, records), nil
}

func printRewards(records []*rewards.RewardRecord) {
	if len(records) == 0 {
		fmt.Println("No claimable rewards found.")
		return
	}

	fmt.Printf("%-14s %-32s %12s %-8s %12s\n", "SOURCE", "NAME", "EARNED", "TOKEN", "VALUE (USD)")
	for _, record := range records {
		value := "unpriced"
		if record.Priced {
			value = record.ValueUsd.StringFixed(2)
		}
		fmt.Printf("%-14s %-32s %12s %-8s %12s\n",
			record.Kind.String(),
			truncate(record.SourceName, 32),
			record.FormatAmount(),
			record.RewardToken.Symbol,
			value,
		)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
