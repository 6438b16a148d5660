package scanner

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/odcpw/berabundle-sub001/internal/metrics"
	"github.com/odcpw/berabundle-sub001/internal/metrics/metricsTypes"
	"github.com/odcpw/berabundle-sub001/pkg/contractCaller"
	"github.com/odcpw/berabundle-sub001/pkg/retry"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize  = 12
	DefaultBatchDelay = 75 * time.Millisecond
)

// ProgressFunc is invoked after each batch with the number of sources
// processed so far, positions found, and the total source count.
type ProgressFunc func(processed int, found int, total int)

type ScannerConfig struct {
	BatchSize  int
	BatchDelay time.Duration

	// Reward tokens that are fixed per source kind. A kind listed here skips
	// the reward-token identity read entirely (the fee staker always pays out
	// the same token).
	FixedRewardTokens map[rewards.SourceKind]rewards.Token
}

// tokenMetadataCache is owned by one Scanner instance. Concurrent scans should
// use independent scanners rather than share one cache.
type tokenMetadataCache struct {
	mu    sync.Mutex
	items map[string]*contractCaller.TokenMetadata
}

func (c *tokenMetadataCache) get(address string) (*contractCaller.TokenMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.items[strings.ToLower(address)]
	return meta, ok
}

func (c *tokenMetadataCache) put(meta *contractCaller.TokenMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[strings.ToLower(meta.Address)] = meta
}

type Scanner struct {
	caller      contractCaller.IContractCaller
	config      *ScannerConfig
	logger      *zap.Logger
	metricsSink *metrics.MetricsSink

	tokenCache *tokenMetadataCache
	retryOpts  *retry.Options
}

func NewScanner(cc contractCaller.IContractCaller, cfg *ScannerConfig, ms *metrics.MetricsSink, l *zap.Logger) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	s := &Scanner{
		caller:      cc,
		config:      cfg,
		logger:      l,
		metricsSink: ms,
		tokenCache:  &tokenMetadataCache{items: make(map[string]*contractCaller.TokenMetadata)},
	}
	s.retryOpts = &retry.Options{
		MaxRetries: retry.DefaultMaxRetries,
		BaseDelay:  retry.DefaultBaseDelay,
		Logger:     l,
		OnRetry: func(attempt int, err error) {
			_ = ms.Incr(metricsTypes.Metric_Incr_RpcRetry, nil, 1)
		},
	}
	return s
}

// Scan queries every source for a claimable position held by wallet. Sources
// are processed in fixed-size batches; within a batch the cheap existence
// checks fan out concurrently, and detail reads follow for sources that
// survive. Failures drop the affected source, never the scan. Output order
// follows input order regardless of completion order.
func (s *Scanner) Scan(ctx context.Context, wallet string, sources []*rewards.RewardSource, onProgress ProgressFunc) ([]*rewards.RewardRecord, error) {
	if !utils.IsValidAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address '%s'", wallet)
	}

	scanStart := time.Now()
	records := make([]*rewards.RewardRecord, 0)
	processed := 0

	batches := utils.Chunk(sources, s.config.BatchSize)
	for batchIndex, batch := range batches {
		batchRecords := s.scanBatch(ctx, wallet, batch)
		records = append(records, batchRecords...)
		processed += len(batch)

		if onProgress != nil {
			onProgress(processed, len(records), len(sources))
		}

		s.logger.Sugar().Debugw("Scanned batch",
			zap.Int("batch", batchIndex),
			zap.Int("processed", processed),
			zap.Int("found", len(records)),
		)

		// Stay under the RPC endpoint's rate limit between batches.
		if batchIndex < len(batches)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.BatchDelay):
			}
		}
	}

	_ = s.metricsSink.Timing(metricsTypes.Metric_Timing_ScanDuration, time.Since(scanStart), nil)

	return records, nil
}

// scanBatch resolves one batch fully before the next batch starts: existence
// checks fan out and join, then detail reads fan out and join. Results are
// recombined by slot index so ordering is deterministic.
func (s *Scanner) scanBatch(ctx context.Context, wallet string, batch []*rewards.RewardSource) []*rewards.RewardRecord {
	positions := make([]*big.Int, len(batch))

	var wg sync.WaitGroup
	for i, source := range batch {
		wg.Add(1)
		slot, src := i, source
		go func() {
			defer wg.Done()

			amount, err := s.checkPosition(ctx, wallet, src)
			if err != nil {
				s.logger.Sugar().Debugw("Existence check failed, excluding source",
					zap.String("source", src.Id()),
					zap.String("kind", src.Kind.String()),
					zap.Error(err),
				)
				s.incrKind(metricsTypes.Metric_Incr_SourceDropped, src.Kind)
				return
			}
			if amount == nil || amount.Sign() <= 0 {
				return
			}
			positions[slot] = amount
		}()
		s.incrKind(metricsTypes.Metric_Incr_SourceScanned, source.Kind)
	}
	wg.Wait()

	results := make([]*rewards.RewardRecord, len(batch))
	for i, source := range batch {
		if positions[i] == nil {
			continue
		}
		wg.Add(1)
		slot, src, position := i, source, positions[i]
		go func() {
			defer wg.Done()

			record, err := s.buildRecord(ctx, wallet, src, position)
			if err != nil {
				s.logger.Sugar().Warnw("Failed to read reward details, dropping source",
					zap.String("source", src.Id()),
					zap.String("kind", src.Kind.String()),
					zap.Error(err),
				)
				s.incrKind(metricsTypes.Metric_Incr_SourceDropped, src.Kind)
				return
			}
			results[slot] = record
		}()
	}
	wg.Wait()

	records := make([]*rewards.RewardRecord, 0)
	for i, record := range results {
		if record == nil {
			continue
		}
		batch[i].LastCheckedAt = time.Now()
		s.incrKind(metricsTypes.Metric_Incr_RewardFound, record.Kind)
		records = append(records, record)
	}
	return records
}

// checkPosition is the cheap single read that decides whether the expensive
// detail reads run at all.
func (s *Scanner) checkPosition(ctx context.Context, wallet string, source *rewards.RewardSource) (*big.Int, error) {
	switch source.Kind {
	case rewards.SourceKind_Vault, rewards.SourceKind_FeeStaker:
		return retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
			return s.caller.GetBalanceOf(ctx, source.Address, wallet)
		})
	case rewards.SourceKind_ValidatorBoost:
		pubkey, err := decodeValidatorPubkey(source.Validator)
		if err != nil {
			return nil, err
		}
		return retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
			return s.caller.GetBoostedAmount(ctx, source.Address, wallet, pubkey)
		})
	default:
		return nil, fmt.Errorf("unknown source kind %d", source.Kind)
	}
}

func (s *Scanner) buildRecord(ctx context.Context, wallet string, source *rewards.RewardSource, position *big.Int) (*rewards.RewardRecord, error) {
	switch source.Kind {
	case rewards.SourceKind_Vault:
		return s.buildVaultRecord(ctx, wallet, source, position)
	case rewards.SourceKind_FeeStaker:
		return s.buildFeeStakerRecord(ctx, wallet, source, position)
	case rewards.SourceKind_ValidatorBoost:
		return s.buildBoostRecord(ctx, source, position)
	default:
		return nil, fmt.Errorf("unknown source kind %d", source.Kind)
	}
}

func (s *Scanner) buildVaultRecord(ctx context.Context, wallet string, source *rewards.RewardSource, stake *big.Int) (*rewards.RewardRecord, error) {
	earned, err := retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
		return s.caller.GetEarned(ctx, source.Address, wallet)
	})
	if err != nil {
		return nil, err
	}
	if earned.Sign() <= 0 {
		return nil, nil
	}

	rewardTokenAddress := source.RewardTokenAddress
	if rewardTokenAddress == "" {
		rewardTokenAddress, err = retry.Do(ctx, s.retryOpts, func() (string, error) {
			return s.caller.GetRewardToken(ctx, source.Address)
		})
		if err != nil {
			return nil, err
		}
	}
	rewardToken, err := s.resolveToken(ctx, rewardTokenAddress)
	if err != nil {
		return nil, err
	}

	stakeTokenAddress := source.StakeTokenAddress
	if stakeTokenAddress == "" {
		stakeTokenAddress, err = retry.Do(ctx, s.retryOpts, func() (string, error) {
			return s.caller.GetStakeToken(ctx, source.Address)
		})
		if err != nil {
			return nil, err
		}
	}
	stakeToken, err := s.resolveToken(ctx, stakeTokenAddress)
	if err != nil {
		return nil, err
	}

	totalSupply, err := retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
		return s.caller.GetTotalSupply(ctx, source.Address)
	})
	if err != nil {
		return nil, err
	}

	rewardRate, err := retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
		return s.caller.GetRewardRate(ctx, source.Address)
	})
	if err != nil {
		return nil, err
	}

	userStake := rewards.AmountFromRaw(stake, stakeToken.Decimals)
	poolShare := decimal.Zero
	if totalSupply.Sign() > 0 {
		poolShare = decimal.NewFromBigInt(stake, 0).
			Div(decimal.NewFromBigInt(totalSupply, 0)).
			Mul(decimal.NewFromInt(100))
	}

	return &rewards.RewardRecord{
		Id:            source.Id(),
		Kind:          source.Kind,
		SourceName:    source.Name,
		SourceAddress: source.Address,
		RewardToken:   *rewardToken,
		EarnedAmount:  rewards.AmountFromRaw(earned, rewardToken.Decimals),
		RawEarned:     earned,
		StakeToken:    stakeToken,
		UserStake:     userStake,
		PoolSharePercent: poolShare,
		RewardRate:       rewards.AmountFromRaw(rewardRate, rewardToken.Decimals),
	}, nil
}

func (s *Scanner) buildFeeStakerRecord(ctx context.Context, wallet string, source *rewards.RewardSource, stake *big.Int) (*rewards.RewardRecord, error) {
	earned, err := retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
		return s.caller.GetEarned(ctx, source.Address, wallet)
	})
	if err != nil {
		return nil, err
	}
	if earned.Sign() <= 0 {
		return nil, nil
	}

	fixed, ok := s.config.FixedRewardTokens[rewards.SourceKind_FeeStaker]
	if !ok {
		return nil, fmt.Errorf("no fixed reward token configured for the fee staker")
	}

	return &rewards.RewardRecord{
		Id:            source.Id(),
		Kind:          source.Kind,
		SourceName:    source.Name,
		SourceAddress: source.Address,
		RewardToken:   fixed,
		EarnedAmount:  rewards.AmountFromRaw(earned, fixed.Decimals),
		RawEarned:     earned,
		UserStake:     rewards.AmountFromRaw(stake, 18),
	}, nil
}

func (s *Scanner) buildBoostRecord(ctx context.Context, source *rewards.RewardSource, boosted *big.Int) (*rewards.RewardRecord, error) {
	pubkey, err := decodeValidatorPubkey(source.Validator)
	if err != nil {
		return nil, err
	}

	totalBoost, err := retry.Do(ctx, s.retryOpts, func() (*big.Int, error) {
		return s.caller.GetValidatorBoost(ctx, source.Address, pubkey)
	})
	if err != nil {
		return nil, err
	}

	boostToken, err := s.resolveToken(ctx, source.Address)
	if err != nil {
		return nil, err
	}

	share := decimal.Zero
	if totalBoost.Sign() > 0 {
		share = decimal.NewFromBigInt(boosted, 0).
			Div(decimal.NewFromBigInt(totalBoost, 0)).
			Mul(decimal.NewFromInt(100))
	}

	return &rewards.RewardRecord{
		Id:            source.Id(),
		Kind:          source.Kind,
		SourceName:    source.Name,
		SourceAddress: source.Address,
		RewardToken:   *boostToken,
		EarnedAmount:  rewards.AmountFromRaw(boosted, boostToken.Decimals),
		RawEarned:     boosted,
		Validator:     source.Validator,
		TotalBoost:    rewards.AmountFromRaw(totalBoost, boostToken.Decimals),
		SharePercent:  share,
	}, nil
}

func (s *Scanner) resolveToken(ctx context.Context, address string) (*rewards.Token, error) {
	if cached, ok := s.tokenCache.get(address); ok {
		return &rewards.Token{Symbol: cached.Symbol, Address: cached.Address, Decimals: cached.Decimals}, nil
	}

	meta, err := retry.Do(ctx, s.retryOpts, func() (*contractCaller.TokenMetadata, error) {
		return s.caller.GetTokenMetadata(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	s.tokenCache.put(meta)

	return &rewards.Token{Symbol: meta.Symbol, Address: meta.Address, Decimals: meta.Decimals}, nil
}

func (s *Scanner) incrKind(metric string, kind rewards.SourceKind) {
	_ = s.metricsSink.Incr(metric, []metricsTypes.MetricsLabel{
		{Name: "sourceKind", Value: kind.String()},
	}, 1)
}

func decodeValidatorPubkey(id string) ([]byte, error) {
	pubkey, err := hex.DecodeString(strings.TrimPrefix(id, "0x"))
	if err != nil {
		return nil, fmt.Errorf("malformed validator pubkey '%s': %w", id, err)
	}
	return pubkey, nil
}
