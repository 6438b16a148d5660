package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "BERABUNDLE"

const DefaultSafeServiceUrl = "https://safe-transaction-berachain.safe.global"

type Chain string

const (
	Chain_Mainnet Chain = "mainnet"
	Chain_Bepolia Chain = "bepolia"
)

var ChainIds = map[Chain]uint64{
	Chain_Mainnet: 80094,
	Chain_Bepolia: 80069,
}

// Flag names. Kebab-case on the command line, normalized to snake_case for
// viper/env binding (BERABUNDLE_ETHEREUM_RPC_URL, etc).
const (
	Debug = "debug"
	ChainFlag = "chain"

	EthereumRpcBaseUrl = "ethereum.rpc-url"

	ScannerBatchSize      = "scanner.batch-size"
	ScannerBatchDelay     = "scanner.batch-delay"
	ScannerVaultCacheTtl  = "scanner.vault-cache-ttl"
	ScannerValidatorCacheTtl = "scanner.validator-cache-ttl"

	SafeServiceUrl = "safe.service-url"
	SafeAddress    = "safe.address"

	KeystorePath    = "keystore.path"
	SignerAddress   = "signer.address"

	MetadataBaseUrl = "metadata.url"
	PricesBaseUrl   = "prices.url"
	PricesCacheTtl  = "prices.cache-ttl"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample-rate"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

type EthereumRpcConfig struct {
	BaseUrl string
}

type ScannerConfig struct {
	BatchSize         int
	BatchDelay        time.Duration
	VaultCacheTtl     time.Duration
	ValidatorCacheTtl time.Duration
}

type SafeConfig struct {
	ServiceUrl  string
	SafeAddress string
}

type KeystoreConfig struct {
	Path          string
	SignerAddress string
}

type MetadataConfig struct {
	BaseUrl string
}

type PricesConfig struct {
	BaseUrl  string
	CacheTtl time.Duration
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug bool
	Chain Chain

	EthereumRpcConfig EthereumRpcConfig
	ScannerConfig     ScannerConfig
	SafeConfig        SafeConfig
	KeystoreConfig    KeystoreConfig
	MetadataConfig    MetadataConfig
	PricesConfig      PricesConfig
	DataDogConfig     DataDogConfig
	PrometheusConfig  PrometheusConfig
}

func parseChain(c string) Chain {
	switch c {
	case "mainnet":
		return Chain_Mainnet
	default:
		return Chain_Bepolia
	}
}

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(NormalizeFlagName(Debug)),
		Chain: parseChain(viper.GetString(NormalizeFlagName(ChainFlag))),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl: viper.GetString(NormalizeFlagName(EthereumRpcBaseUrl)),
		},

		ScannerConfig: ScannerConfig{
			BatchSize:         viper.GetInt(NormalizeFlagName(ScannerBatchSize)),
			BatchDelay:        viper.GetDuration(NormalizeFlagName(ScannerBatchDelay)),
			VaultCacheTtl:     viper.GetDuration(NormalizeFlagName(ScannerVaultCacheTtl)),
			ValidatorCacheTtl: viper.GetDuration(NormalizeFlagName(ScannerValidatorCacheTtl)),
		},

		SafeConfig: SafeConfig{
			ServiceUrl:  StringWithDefault(viper.GetString(NormalizeFlagName(SafeServiceUrl)), DefaultSafeServiceUrl),
			SafeAddress: viper.GetString(NormalizeFlagName(SafeAddress)),
		},

		KeystoreConfig: KeystoreConfig{
			Path:          viper.GetString(NormalizeFlagName(KeystorePath)),
			SignerAddress: viper.GetString(NormalizeFlagName(SignerAddress)),
		},

		MetadataConfig: MetadataConfig{
			BaseUrl: viper.GetString(NormalizeFlagName(MetadataBaseUrl)),
		},

		PricesConfig: PricesConfig{
			BaseUrl:  viper.GetString(NormalizeFlagName(PricesBaseUrl)),
			CacheTtl: viper.GetDuration(NormalizeFlagName(PricesCacheTtl)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(NormalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(NormalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(NormalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(NormalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(NormalizeFlagName(PrometheusPort)),
		},
	}
}

func (c *Config) GetChainId() uint64 {
	return ChainIds[c.Chain]
}

// Core protocol contracts, keyed by chain.
type CoreContractAddresses struct {
	RewardVaultFactory string
	BgtToken           string
	BgtStaker          string
	HoneyToken         string
	MultiSendCallOnly  string
}

var coreContracts = map[Chain]*CoreContractAddresses{
	Chain_Mainnet: {
		RewardVaultFactory: "0x94ad6ac84f6c6fba8b8ccbd71d9f4f101def52a8",
		BgtToken:           "0x656b95e550c07a9ffe548bd4085c72418ceb1dba",
		BgtStaker:          "0x44f07ce5afecbcc406e6befd40cc2998eeb8c7c6",
		HoneyToken:         "0xfcbd14dc51f0a4d49d5e53c2e0950e0bc26d0dce",
		MultiSendCallOnly:  "0x40a2accbd92bca938b02010e17a5b8929b49130d",
	},
	Chain_Bepolia: {
		RewardVaultFactory: "0x94ad6ac84f6c6fba8b8ccbd71d9f4f101def52a8",
		BgtToken:           "0x656b95e550c07a9ffe548bd4085c72418ceb1dba",
		BgtStaker:          "0x44f07ce5afecbcc406e6befd40cc2998eeb8c7c6",
		HoneyToken:         "0xfcbd14dc51f0a4d49d5e53c2e0950e0bc26d0dce",
		MultiSendCallOnly:  "0x40a2accbd92bca938b02010e17a5b8929b49130d",
	},
}

func (c *Config) GetCoreContracts() (*CoreContractAddresses, error) {
	contracts, ok := coreContracts[c.Chain]
	if !ok {
		return nil, fmt.Errorf("no core contracts for chain '%s'", c.Chain)
	}
	return contracts, nil
}

var kebabRegex = regexp.MustCompile(`[-.]`)

// NormalizeFlagName converts a kebab-case flag name ("safe.service-url") to
// the snake_case key viper uses ("safe_service_url").
func NormalizeFlagName(name string) string {
	return kebabRegex.ReplaceAllString(name, "_")
}

// KebabToSnakeCase is kept as an alias used by flag binding in cmd.
func KebabToSnakeCase(name string) string {
	return NormalizeFlagName(name)
}

func StringWithDefault(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
