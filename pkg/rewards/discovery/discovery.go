package discovery

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/odcpw/berabundle-sub001/pkg/clients/metadata"
	"github.com/pkg/errors"
	"github.com/odcpw/berabundle-sub001/pkg/contractCaller"
	"github.com/odcpw/berabundle-sub001/pkg/retry"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultVaultCacheTtl     = time.Minute * 5
	DefaultValidatorCacheTtl = time.Minute * 15

	registryFetchChunkSize = 12
)

type DiscoveryConfig struct {
	VaultRegistryAddress string
	BgtStakerAddress     string
	BgtTokenAddress      string

	VaultCacheTtl     time.Duration
	ValidatorCacheTtl time.Duration
}

// sourceCache is an explicit cache object with its own timestamp and TTL,
// owned by one Discovery instance. Read-then-replaced, never mutated in place.
type sourceCache struct {
	mu        sync.Mutex
	items     []*rewards.RewardSource
	fetchedAt time.Time
	ttl       time.Duration
}

func (c *sourceCache) get(now time.Time, forceRefresh bool) ([]*rewards.RewardSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if forceRefresh || c.items == nil || now.Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.items, true
}

func (c *sourceCache) put(items []*rewards.RewardSource, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.fetchedAt = now
}

type Discovery struct {
	metadataClient *metadata.Client
	caller         contractCaller.IContractCaller
	config         *DiscoveryConfig
	logger         *zap.Logger

	vaultCache     *sourceCache
	validatorCache *sourceCache

	// Overridable for deterministic cache tests.
	now func() time.Time
}

func NewDiscovery(mc *metadata.Client, cc contractCaller.IContractCaller, cfg *DiscoveryConfig, l *zap.Logger) *Discovery {
	if cfg.VaultCacheTtl == 0 {
		cfg.VaultCacheTtl = DefaultVaultCacheTtl
	}
	if cfg.ValidatorCacheTtl == 0 {
		cfg.ValidatorCacheTtl = DefaultValidatorCacheTtl
	}
	return &Discovery{
		metadataClient: mc,
		caller:         cc,
		config:         cfg,
		logger:         l,
		vaultCache:     &sourceCache{ttl: cfg.VaultCacheTtl},
		validatorCache: &sourceCache{ttl: cfg.ValidatorCacheTtl},
		now:            time.Now,
	}
}

// SetNowFunc overrides the clock used for cache expiry.
func (d *Discovery) SetNowFunc(now func() time.Time) {
	d.now = now
}

// DiscoverSources returns every candidate reward source for a scan: the vault
// set, one boost source per validator, and the fixed fee staker. Exhausting
// every avenue yields an empty list, not an error; callers treat empty as
// "no rewards".
func (d *Discovery) DiscoverSources(ctx context.Context, forceRefresh bool) ([]*rewards.RewardSource, error) {
	sources := make([]*rewards.RewardSource, 0)

	vaults, err := d.discoverVaults(ctx, forceRefresh)
	if err != nil {
		d.logger.Sugar().Warnw("Failed to discover vaults", zap.Error(err))
	} else {
		sources = append(sources, vaults...)
	}

	if d.config.BgtStakerAddress != "" {
		sources = append(sources, &rewards.RewardSource{
			Address: strings.ToLower(d.config.BgtStakerAddress),
			Kind:    rewards.SourceKind_FeeStaker,
			Name:    "BGT Staker",
		})
	}

	validators, err := d.discoverValidatorBoosts(ctx, forceRefresh)
	if err != nil {
		d.logger.Sugar().Warnw("Failed to discover validator boosts", zap.Error(err))
	} else {
		sources = append(sources, validators...)
	}

	return sources, nil
}

func (d *Discovery) discoverVaults(ctx context.Context, forceRefresh bool) ([]*rewards.RewardSource, error) {
	if cached, ok := d.vaultCache.get(d.now(), forceRefresh); ok {
		return cached, nil
	}

	vaults, err := d.fetchVaultsFromMetadata(ctx)
	if err != nil {
		d.logger.Sugar().Warnw("Metadata feed unavailable, falling back to on-chain registry",
			zap.Error(err),
		)
		vaults, err = d.fetchVaultsFromRegistry(ctx)
		if err != nil {
			return nil, err
		}
	}

	d.vaultCache.put(vaults, d.now())
	return vaults, nil
}

func (d *Discovery) fetchVaultsFromMetadata(ctx context.Context) ([]*rewards.RewardSource, error) {
	vaults, err := d.metadataClient.GetVaults(ctx)
	if err != nil {
		return nil, err
	}

	valid := utils.Filter(vaults, func(v *metadata.Vault) bool {
		if !utils.IsValidAddress(v.VaultAddress) {
			d.logger.Sugar().Warnw("Skipping vault with invalid address",
				zap.String("address", v.VaultAddress),
				zap.String("name", v.Name),
			)
			return false
		}
		return true
	})
	return utils.Map(valid, func(v *metadata.Vault, i uint64) *rewards.RewardSource {
		return &rewards.RewardSource{
			Address:            strings.ToLower(v.VaultAddress),
			Kind:               rewards.SourceKind_Vault,
			Name:               v.Name,
			StakeTokenAddress:  strings.ToLower(v.StakeTokenAddress),
			RewardTokenAddress: strings.ToLower(v.RewardTokenAddress),
		}
	}), nil
}

// fetchVaultsFromRegistry enumerates the on-chain registry with the same
// chunked fan-out and per-call retry policy the scanner uses. A failed index
// is skipped with a warning rather than failing the whole discovery.
func (d *Discovery) fetchVaultsFromRegistry(ctx context.Context) ([]*rewards.RewardSource, error) {
	registry := d.config.VaultRegistryAddress
	if registry == "" {
		return nil, errors.New("no vault registry address configured")
	}

	count, err := retry.Do(ctx, retry.DefaultOptions(), func() (uint64, error) {
		return d.caller.GetRegistryCount(ctx, registry)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the vault registry size")
	}

	indexes := make([]uint64, count)
	for i := range indexes {
		indexes[i] = uint64(i)
	}

	addresses := make([]string, count)
	for _, chunk := range utils.Chunk(indexes, registryFetchChunkSize) {
		var wg sync.WaitGroup
		for _, index := range chunk {
			wg.Add(1)
			currentIndex := index
			go func() {
				defer wg.Done()
				address, err := retry.Do(ctx, retry.DefaultOptions(), func() (string, error) {
					return d.caller.GetRegistryItem(ctx, registry, currentIndex)
				})
				if err != nil {
					d.logger.Sugar().Warnw("Failed to fetch registry item, skipping",
						zap.Uint64("index", currentIndex),
						zap.Error(err),
					)
					return
				}
				addresses[currentIndex] = address
			}()
		}
		wg.Wait()
	}

	sources := make([]*rewards.RewardSource, 0, count)
	for i, address := range addresses {
		if address == "" {
			continue
		}
		sources = append(sources, &rewards.RewardSource{
			Address: address,
			Kind:    rewards.SourceKind_Vault,
			Name:    fmt.Sprintf("Vault #%d", i),
		})
	}
	return sources, nil
}

func (d *Discovery) discoverValidatorBoosts(ctx context.Context, forceRefresh bool) ([]*rewards.RewardSource, error) {
	if d.config.BgtTokenAddress == "" {
		return []*rewards.RewardSource{}, nil
	}

	if cached, ok := d.validatorCache.get(d.now(), forceRefresh); ok {
		return cached, nil
	}

	validators, err := d.metadataClient.GetValidators(ctx)
	if err != nil {
		return nil, err
	}

	valid := utils.Filter(validators, func(v *metadata.Validator) bool {
		if _, err := hex.DecodeString(strings.TrimPrefix(v.Id, "0x")); err != nil {
			d.logger.Sugar().Warnw("Skipping validator with malformed pubkey",
				zap.String("id", v.Id),
				zap.String("name", v.Name),
			)
			return false
		}
		return true
	})
	sources := utils.Map(valid, func(v *metadata.Validator, i uint64) *rewards.RewardSource {
		return &rewards.RewardSource{
			Address:   strings.ToLower(d.config.BgtTokenAddress),
			Kind:      rewards.SourceKind_ValidatorBoost,
			Name:      v.Name,
			Validator: v.Id,
		}
	})

	d.validatorCache.put(sources, d.now())
	return sources, nil
}
