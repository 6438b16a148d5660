package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/odcpw/berabundle-sub001/internal/config"
	"github.com/odcpw/berabundle-sub001/internal/logger"
	"github.com/odcpw/berabundle-sub001/internal/metrics"
	"github.com/odcpw/berabundle-sub001/internal/shutdown"
	"github.com/odcpw/berabundle-sub001/pkg/clients/ethereum"
	"github.com/odcpw/berabundle-sub001/pkg/clients/metadata"
	"github.com/odcpw/berabundle-sub001/pkg/clients/pricing"
	"github.com/odcpw/berabundle-sub001/pkg/contractCaller/sequentialContractCaller"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/rewards/aggregator"
	"github.com/odcpw/berabundle-sub001/pkg/rewards/discovery"
	"github.com/odcpw/berabundle-sub001/pkg/rewards/scanner"
	"go.uber.org/zap"
)

// app holds the wired-up components shared by the scan and claim commands.
type app struct {
	Config        *config.Config
	Logger        *zap.Logger
	MetricsSink   *metrics.MetricsSink
	EthClient     *ethereum.Client
	ContractStore *config.CoreContractAddresses
	Discovery     *discovery.Discovery
	Scanner       *scanner.Scanner
	Aggregator    *aggregator.Aggregator
}

func buildApp() (*app, error) {
	cfg := config.NewConfig()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, err
	}

	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		l.Sugar().Errorw("Failed to setup metrics clients", zap.Error(err))
		return nil, err
	}

	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
	if err != nil {
		l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
		return nil, err
	}

	if cfg.EthereumRpcConfig.BaseUrl == "" {
		return nil, fmt.Errorf("an ethereum rpc url is required (--ethereum.rpc-url)")
	}

	contracts, err := cfg.GetCoreContracts()
	if err != nil {
		return nil, err
	}

	ethClient := ethereum.NewClient(ethereum.DefaultEthereumClientConfig(cfg.EthereumRpcConfig.BaseUrl), l)

	caller, err := sequentialContractCaller.NewSequentialContractCaller(ethClient, l)
	if err != nil {
		return nil, err
	}

	metadataClient := metadata.NewMetadataClient(cfg.MetadataConfig.BaseUrl, l)

	disc := discovery.NewDiscovery(metadataClient, caller, &discovery.DiscoveryConfig{
		VaultRegistryAddress: contracts.RewardVaultFactory,
		BgtStakerAddress:     contracts.BgtStaker,
		BgtTokenAddress:      contracts.BgtToken,
		VaultCacheTtl:        cfg.ScannerConfig.VaultCacheTtl,
		ValidatorCacheTtl:    cfg.ScannerConfig.ValidatorCacheTtl,
	}, l)

	scn := scanner.NewScanner(caller, &scanner.ScannerConfig{
		BatchSize:  cfg.ScannerConfig.BatchSize,
		BatchDelay: cfg.ScannerConfig.BatchDelay,
		FixedRewardTokens: map[rewards.SourceKind]rewards.Token{
			rewards.SourceKind_FeeStaker: {
				Symbol:   "HONEY",
				Address:  contracts.HoneyToken,
				Decimals: 18,
			},
		},
	}, sink, l)

	pricingClient := pricing.NewPricingClient(cfg.PricesConfig.BaseUrl, cfg.PricesConfig.CacheTtl, l)

	agg := aggregator.NewAggregator(pricingClient, sink, l)

	return &app{
		Config:        cfg,
		Logger:        l,
		MetricsSink:   sink,
		EthClient:     ethClient,
		ContractStore: contracts,
		Discovery:     disc,
		Scanner:       scn,
		Aggregator:    agg,
	}, nil
}

// withShutdown returns a context that is cancelled when the process receives
// SIGINT or SIGTERM, so an in-flight scan stops at the next batch boundary.
func withShutdown(ctx context.Context, l *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	gracefulShutdown := shutdown.CreateGracefulShutdownChannel()
	done := make(chan bool)
	go shutdown.ListenForShutdown(gracefulShutdown, done, cancel, time.Second, l)

	return ctx, cancel
}

func keystorePasswordFromEnv() (string, error) {
	password := os.Getenv(config.ENV_PREFIX + "_KEYSTORE_PASSWORD")
	if password == "" {
		return "", fmt.Errorf("%s_KEYSTORE_PASSWORD is not set", config.ENV_PREFIX)
	}
	return password, nil
}
