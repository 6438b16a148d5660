package aggregator

import (
	"context"

	"github.com/odcpw/berabundle-sub001/internal/metrics"
	"github.com/odcpw/berabundle-sub001/internal/metrics/metricsTypes"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/utils"
	"go.uber.org/zap"
)

// PriceOracle is the lookup collaborator. A nil price means "unpriced" and is
// tolerated; only transport errors surface, and even those degrade to an
// unpriced record rather than aborting aggregation.
type PriceOracle interface {
	GetPrice(ctx context.Context, tokenAddress string) (*decimal.Decimal, error)
}

type TokenTotal struct {
	Token    rewards.Token
	Amount   decimal.Decimal
	ValueUsd decimal.Decimal
}

type AggregatedRewards struct {
	Records []*rewards.RewardRecord

	// TotalsByToken preserves first-seen token order for stable display.
	TotalsByToken *orderedmap.OrderedMap[string, *TokenTotal]

	TotalValueUsd decimal.Decimal
}

// FormatTotalUsd rounds only at the point of display; summation above keeps
// full precision to avoid compounding rounding error.
func (a *AggregatedRewards) FormatTotalUsd() string {
	return a.TotalValueUsd.Round(2).StringFixed(2)
}

type Aggregator struct {
	priceOracle PriceOracle
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewAggregator(oracle PriceOracle, ms *metrics.MetricsSink, l *zap.Logger) *Aggregator {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &Aggregator{
		priceOracle: oracle,
		metricsSink: ms,
		logger:      l,
	}
}

// Aggregate values each record in USD and accumulates per-token and overall
// totals. Records are mutated in place with their valuation.
func (a *Aggregator) Aggregate(ctx context.Context, records []*rewards.RewardRecord) *AggregatedRewards {
	totals := orderedmap.New[string, *TokenTotal]()

	for _, record := range records {
		price := a.lookupPrice(ctx, record.RewardToken.Address)
		if price != nil {
			record.ValueUsd = record.EarnedAmount.Mul(*price)
			record.Priced = true
		} else {
			record.ValueUsd = decimal.Zero
			record.Priced = false
		}

		total, ok := totals.Get(record.RewardToken.Symbol)
		if !ok {
			total = &TokenTotal{Token: record.RewardToken}
			totals.Set(record.RewardToken.Symbol, total)
		}
		total.Amount = total.Amount.Add(record.EarnedAmount)
		total.ValueUsd = total.ValueUsd.Add(record.ValueUsd)
	}

	totalUsd := utils.Reduce(records, func(acc decimal.Decimal, record *rewards.RewardRecord) decimal.Decimal {
		return acc.Add(record.ValueUsd)
	}, decimal.Zero)

	totalUsdFloat, _ := totalUsd.Float64()
	_ = a.metricsSink.Gauge(metricsTypes.Metric_Gauge_RewardsTotalUsd, totalUsdFloat, nil)

	return &AggregatedRewards{
		Records:       records,
		TotalsByToken: totals,
		TotalValueUsd: totalUsd,
	}
}

func (a *Aggregator) lookupPrice(ctx context.Context, tokenAddress string) *decimal.Decimal {
	price, err := a.priceOracle.GetPrice(ctx, tokenAddress)
	if err != nil {
		a.logger.Sugar().Warnw("Price lookup failed, treating token as unpriced",
			zap.String("token", tokenAddress),
			zap.Error(err),
		)
		return nil
	}
	return price
}
